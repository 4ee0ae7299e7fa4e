// Package snapshot stores save states of Intcode machines in a bbolt
// database. States are kept zstd-compressed and verified against a blake3
// checksum when they are loaded.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	bolt "go.etcd.io/bbolt"

	"github.com/nf/intcode/intcode"
)

var (
	// ErrNotFound is returned when no state has the requested name.
	ErrNotFound = errors.New("state not found")

	// ErrCorrupt is returned when a stored state does not match its
	// checksum.
	ErrCorrupt = errors.New("state checksum mismatch")
)

var (
	bucketStates = []byte("states") // name -> compressed machine state
	bucketInfo   = []byte("info")   // name -> gob-encoded Info
)

// Info describes a stored state.
type Info struct {
	Name   string
	Saved  time.Time
	IP     int64
	Steps  int64
	Status intcode.Status
	Cells  int      // memory size in cells
	Size   int      // compressed size in bytes
	Sum    [32]byte // blake3 of the uncompressed state
}

func (i Info) String() string {
	return fmt.Sprintf("%s: %s at %d after %d steps, %d cells (%d bytes) saved %s",
		i.Name, i.Status, i.IP, i.Steps, i.Cells, i.Size, i.Saved.Format(time.Stamp))
}

// Store is a database of machine states.
type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens the store at path, creating it if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create directory")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketStates, bucketInfo} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, errors.Wrap(err, "zstd decoder")
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

// Save stores the state of m under name, replacing any previous state
// with that name.
func (s *Store) Save(name string, m *intcode.Machine) (Info, error) {
	state, err := m.MarshalBinary()
	if err != nil {
		return Info{}, errors.Wrap(err, "encode machine")
	}
	data := s.enc.EncodeAll(state, nil)
	info := Info{
		Name:   name,
		Saved:  time.Now(),
		IP:     m.IP,
		Steps:  m.Steps(),
		Status: m.Status(),
		Cells:  m.Mem.Len(),
		Size:   len(data),
		Sum:    blake3.Sum256(state),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(info); err != nil {
		return Info{}, errors.Wrap(err, "encode info")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketStates).Put([]byte(name), data); err != nil {
			return err
		}
		return tx.Bucket(bucketInfo).Put([]byte(name), buf.Bytes())
	})
	if err != nil {
		return Info{}, errors.Wrapf(err, "save %q", name)
	}
	return info, nil
}

// Load returns a new machine restored from the state stored under name.
func (s *Store) Load(name string, opts ...intcode.Option) (*intcode.Machine, error) {
	var data []byte
	info, err := s.info(name, func(tx *bolt.Tx) {
		// bbolt values are only valid inside the transaction.
		data = append(data, tx.Bucket(bucketStates).Get([]byte(name))...)
	})
	if err != nil {
		return nil, err
	}
	state, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %q", name)
	}
	if blake3.Sum256(state) != info.Sum {
		return nil, errors.Wrapf(ErrCorrupt, "load %q", name)
	}
	m := intcode.NewMachine(nil, opts...)
	if err := m.UnmarshalBinary(state); err != nil {
		return nil, errors.Wrapf(err, "load %q", name)
	}
	return m, nil
}

// Info returns the description of the state stored under name.
func (s *Store) Info(name string) (Info, error) {
	return s.info(name, nil)
}

func (s *Store) info(name string, f func(*bolt.Tx)) (info Info, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInfo).Get([]byte(name))
		if v == nil {
			return errors.Wrapf(ErrNotFound, "%q", name)
		}
		if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&info); err != nil {
			return errors.Wrapf(err, "decode info %q", name)
		}
		if f != nil {
			f(tx)
		}
		return nil
	})
	return info, err
}

// List returns the descriptions of all stored states, most recent first.
func (s *Store) List() ([]Info, error) {
	var infos []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketInfo).ForEach(func(k, v []byte) error {
			var info Info
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&info); err != nil {
				return errors.Wrapf(err, "decode info %q", k)
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Saved.After(infos[j].Saved)
	})
	return infos, nil
}

// Delete removes the state stored under name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketInfo).Get([]byte(name)) == nil {
			return errors.Wrapf(ErrNotFound, "%q", name)
		}
		if err := tx.Bucket(bucketStates).Delete([]byte(name)); err != nil {
			return err
		}
		return tx.Bucket(bucketInfo).Delete([]byte(name))
	})
}
