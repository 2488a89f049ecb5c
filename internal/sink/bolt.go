package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/tohu/internal/batch"
	"github.com/roach88/tohu/internal/record"
)

// Bolt stores rows as canonical JSON objects in a bbolt bucket. Keys are
// the bucket's sequence numbers, zero-padded so that key order is
// insertion order across batches.
type Bolt struct {
	DB     *bolt.DB
	Bucket string
}

var _ Sink = (*Bolt)(nil)

// OpenBolt opens (or creates) a bbolt database file.
func OpenBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}
	return db, nil
}

// BoltKey formats a sequence number as a bucket key.
func BoltKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%020d", seq))
}

// Write implements Sink. The batch is written in one transaction.
func (b *Bolt) Write(ctx context.Context, items *batch.Items, sel batch.Selection) error {
	if b.Bucket == "" {
		return fmt.Errorf("bolt: bucket name is required")
	}
	tbl, err := items.Table(sel)
	if err != nil {
		return fmt.Errorf("bolt: %w", err)
	}
	err = b.DB.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(b.Bucket))
		if err != nil {
			return err
		}
		for i, row := range tbl.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := record.MarshalCanonical(rowObject(tbl.Columns, row))
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			seq, err := bkt.NextSequence()
			if err != nil {
				return err
			}
			if err := bkt.Put(BoltKey(seq), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt: %w", err)
	}
	slog.Debug("bolt sink wrote batch", "bucket", b.Bucket, "rows", len(tbl.Rows))
	return nil
}

// ReadBolt returns the rows stored in bucket, in key order.
func ReadBolt(db *bolt.DB, bucket string) ([]map[string]any, error) {
	var rows []map[string]any
	err := db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		return bkt.ForEach(func(k, v []byte) error {
			var row map[string]any
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			rows = append(rows, row)
			return nil
		})
	})
	return rows, err
}
