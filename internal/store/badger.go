package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps messages under "chat:{hex room}:{unixnano}:{uuid}" keys so
// a reverse prefix scan yields a room's history newest first. The room id is
// hex encoded so ids containing ':' cannot bleed into another room's prefix.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(opts Options) (*BadgerStore, error) {
	options := badger.DefaultOptions(opts.Path).
		WithLoggingLevel(badger.WARNING)
	if opts.InMemory {
		options = options.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.ReadOnly {
		options = options.WithReadOnly(true).WithBypassLockGuard(true)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", opts.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

func roomPrefix(roomID string) []byte {
	return []byte("chat:" + hex.EncodeToString([]byte(roomID)) + ":")
}

func (b *BadgerStore) Append(ctx context.Context, message ChatMessage) (ChatMessage, error) {
	message, err := prepare(message)
	if err != nil {
		return ChatMessage{}, err
	}
	if err := ctx.Err(); err != nil {
		return ChatMessage{}, err
	}

	value, err := json.Marshal(message)
	if err != nil {
		return ChatMessage{}, err
	}
	key := append(roomPrefix(message.RoomID), sortKey(message)...)

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return ChatMessage{}, fmt.Errorf("storing chat message: %w", err)
	}
	return message, nil
}

func (b *BadgerStore) History(ctx context.Context, roomID string, limit int) ([]ChatMessage, error) {
	if roomID == "" {
		return nil, ErrEmptyRoom
	}

	var messages []ChatMessage
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts from the largest key <= seek, so seek past
		// every possible timestamp of this room.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(value []byte) error {
				var message ChatMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading history of room %q: %w", roomID, err)
	}
	return messages, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
