package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/dattu/truncated_collider/pkg/search"
)

const eventsBucket = "events"

// Record is one journal line.
type Record struct {
	Seq          uint64    `json:"seq"`
	Time         time.Time `json:"time"`
	Kind         string    `json:"kind"`
	Count        uint64    `json:"count"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	PrevPosition uint64    `json:"prev_position,omitempty"`
	PrevSample   string    `json:"prev_sample,omitempty"`
	CurrPosition uint64    `json:"curr_position,omitempty"`
	CurrSample   string    `json:"curr_sample,omitempty"`
}

// Journal appends search progress and fingerprint hits to a bbolt file.
// It implements search.Observer.
type Journal struct {
	db      *bolt.DB
	batcher *Batcher
	seq     uint64
	log     *zap.Logger
}

var _ search.Observer = (*Journal)(nil)

// OpenJournal opens or creates the journal at path. New records continue
// after the last stored sequence number.
func OpenJournal(path string, log *zap.Logger) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	var last uint64
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		if err != nil {
			return err
		}
		if k, _ := b.Cursor().Last(); k != nil {
			last = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare journal %s: %w", path, err)
	}
	return &Journal{
		db:      db,
		batcher: NewBatcher(db, eventsBucket, log),
		seq:     last,
		log:     log,
	}, nil
}

// Progress records a progress checkpoint.
func (j *Journal) Progress(count uint64) {
	j.put(Record{Kind: "progress", Count: count})
}

// Event records a fingerprint hit.
func (j *Journal) Event(e search.Event) {
	j.put(Record{
		Kind:         e.Kind.String(),
		Count:        e.Count,
		Fingerprint:  e.Hex,
		PrevPosition: e.Prev.Position,
		PrevSample:   string(e.Prev.Sample),
		CurrPosition: e.Curr.Position,
		CurrSample:   string(e.Curr.Sample),
	})
}

func (j *Journal) put(r Record) {
	j.seq++
	r.Seq = j.seq
	r.Time = time.Now().UTC()
	raw, err := json.Marshal(r)
	if err != nil {
		j.log.Error("encode journal record", zap.Error(err))
		return
	}
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], r.Seq)
	j.batcher.Put(key[:], raw)
}

// Close flushes pending records and closes the file.
func (j *Journal) Close() error {
	j.batcher.Close()
	return j.db.Close()
}

// ReadJournal returns every record at path in sequence order.
func ReadJournal(path string) ([]Record, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer db.Close()

	var out []Record
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(eventsBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}
	return out, nil
}
