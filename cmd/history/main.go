// Command history prints the most recent persisted messages of a room.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	room := flag.String("room", "", "room id to print")
	limit := flag.Int("limit", 50, "maximum number of messages, 0 for all")
	driver := flag.String("driver", store.DriverBadger, "store driver: badger or bolt")
	path := flag.String("path", "", "path to the store (default depends on -driver)")
	flag.Parse()

	if *room == "" {
		color.Red.Println("-room is required")
		flag.Usage()
		os.Exit(2)
	}

	if *path == "" {
		*path = store.DefaultPath(*driver)
	}

	if err := run(*room, *limit, *driver, *path); err != nil {
		color.Red.Printf("history: %v\n", err)
		os.Exit(1)
	}
}

func run(room string, limit int, driver, path string) error {
	chats, err := store.Open(store.Options{Driver: driver, Path: path, ReadOnly: true})
	if err != nil {
		return err
	}
	defer chats.Close()

	messages, err := chats.History(context.Background(), room, limit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		color.Yellow.Printf("No messages in room %q\n", room)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "User", "Message", "ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	// Oldest first reads naturally in a terminal.
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		table.Append([]string{
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.UserID,
			m.Message,
			m.ID.String()[:8],
		})
	}
	table.Render()

	fmt.Printf("%d message(s) in room %q\n", len(messages), room)
	return nil
}
