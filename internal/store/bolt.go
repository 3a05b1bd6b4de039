package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var chatsBucket = []byte("chats")

// BoltStore keeps one nested bucket per room under a root "chats" bucket.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(opts Options) (*BoltStore, error) {
	db, err := bolt.Open(opts.Path, 0o600, &bolt.Options{
		Timeout:  time.Second,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt at %q: %w", opts.Path, err)
	}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(chatsBucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Append(ctx context.Context, message ChatMessage) (ChatMessage, error) {
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

	err = b.db.Update(func(tx *bolt.Tx) error {
		room, err := tx.Bucket(chatsBucket).CreateBucketIfNotExists([]byte(message.RoomID))
		if err != nil {
			return err
		}
		return room.Put([]byte(sortKey(message)), value)
	})
	if err != nil {
		return ChatMessage{}, fmt.Errorf("storing chat message: %w", err)
	}
	return message, nil
}

func (b *BoltStore) History(ctx context.Context, roomID string, limit int) ([]ChatMessage, error) {
	if roomID == "" {
		return nil, ErrEmptyRoom
	}

	var messages []ChatMessage
	err := b.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(chatsBucket)
		if root == nil {
			return nil
		}
		room := root.Bucket([]byte(roomID))
		if room == nil {
			return nil
		}

		c := room.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(messages) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var message ChatMessage
			if err := json.Unmarshal(v, &message); err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading history of room %q: %w", roomID, err)
	}
	return messages, nil
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
