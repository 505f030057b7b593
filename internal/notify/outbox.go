package notify

import (
	"encoding/json"
	"eofficeTracker/internal/events"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Item - недоставленное событие или уже собранное сообщение.
type Item struct {
	ID        string        `json:"id"`
	Event     *events.Event `json:"event,omitempty"`
	Message   *Message      `json:"message,omitempty"`
	Retries   int           `json:"retries"`
	CreatedAt time.Time     `json:"created_at"`

	key []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
}

// ключ сортируется по времени постановки
func buildKey(i Item) []byte {
	return []byte(fmt.Sprintf("%020d:%s", i.CreatedAt.UnixNano(), i.ID))
}

// Outbox хранит недоставленные уведомления в BoltDB до повторной попытки.
type Outbox struct {
	db     *bolt.DB
	bucket []byte
}

func OpenOutbox(path string) (*Outbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога outbox: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("открытие outbox: %w", err)
	}

	bucket := []byte("notifications")
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("создание bucket: %w", err)
	}

	return &Outbox{db: db, bucket: bucket}, nil
}

func (o *Outbox) Close() error {
	if o == nil || o.db == nil {
		return nil
	}
	return o.db.Close()
}

func (o *Outbox) Enqueue(item Item) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	return o.put(buildKey(item), item)
}

// Save перезаписывает элемент под прежним ключом (например, после неудачной попытки).
func (o *Outbox) Save(item Item) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if item.key == nil {
		return o.Enqueue(item)
	}
	return o.put(item.key, item)
}

func (o *Outbox) put(key []byte, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Put(key, payload)
	})
}

// GetBatch возвращает до limit элементов, не удаляя их.
func (o *Outbox) GetBatch(limit int) ([]Item, error) {
	if o == nil || o.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	items := []Item{}
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, v := c.First(); k != nil && len(items) < limit; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			item.key = append([]byte(nil), k...)
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (o *Outbox) Remove(item Item) error {
	if o == nil || o.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if item.key == nil {
		return nil
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(o.bucket).Delete(item.key)
	})
}

func (o *Outbox) Len() (int, error) {
	if o == nil || o.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	n := 0
	err := o.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(o.bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}
