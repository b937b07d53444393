package storage

import "sort"

// collection is the key space of one named collection inside the shared
// database. Records live under "c/<name>/<key>".
type collection struct {
	db     DB
	name   string
	prefix []byte
}

func newCollection(db DB, name string) *collection {
	return &collection{db: db, name: name, prefix: []byte(collectionPrefix + name + "/")}
}

func (c *collection) key(k string) []byte {
	out := make([]byte, 0, len(c.prefix)+len(k))
	out = append(out, c.prefix...)
	return append(out, k...)
}

func (c *collection) get(k string) ([]byte, error) {
	return c.db.Get(c.key(k))
}

func (c *collection) put(k string, value []byte) error {
	return c.db.Put(c.key(k), value)
}

func (c *collection) delete(k string) error {
	return c.db.Delete(c.key(k))
}

// each calls fn for every record in ascending key order. value is a copy.
func (c *collection) each(fn func(key string, value []byte) error) error {
	type record struct {
		key   string
		value []byte
	}
	var records []record
	err := c.db.ForEach(c.prefix, func(key, value []byte) error {
		records = append(records, record{string(key[len(c.prefix):]), cloneBytes(value)})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].key < records[j].key })
	for _, r := range records {
		if err := fn(r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

// clear deletes every record of the collection in one batch.
func (c *collection) clear() error {
	var keys [][]byte
	err := c.db.ForEach(c.prefix, func(key, _ []byte) error {
		keys = append(keys, cloneBytes(key))
		return nil
	})
	if err != nil {
		return err
	}
	batch := newBatch(c.db)
	for _, k := range keys {
		if err := batch.Delete(k); err != nil {
			return err
		}
	}
	return batch.Commit()
}

// newBatch returns an atomic batch when db supports one, and otherwise a
// batch that applies its writes one by one on Commit.
func newBatch(db DB) Batch {
	if b, ok := db.(Batcher); ok {
		return b.NewBatch()
	}
	return &sequentialBatch{db: db}
}

type sequentialBatch struct {
	db DB
	batchOps
}

func (sb *sequentialBatch) Commit() error {
	return sb.flush(sb.db.Put, sb.db.Delete)
}

type batchOp struct {
	key   []byte
	value []byte // nil deletes
}

// batchOps buffers copies of batched writes until they are flushed.
type batchOps struct {
	ops []batchOp
}

func (b *batchOps) Put(key, value []byte) error {
	v := cloneBytes(value)
	if v == nil {
		v = []byte{}
	}
	b.ops = append(b.ops, batchOp{cloneBytes(key), v})
	return nil
}

func (b *batchOps) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: cloneBytes(key)})
	return nil
}

func (b *batchOps) flush(put func(key, value []byte) error, del func(key []byte) error) error {
	ops := b.ops
	b.ops = nil
	for _, op := range ops {
		var err error
		if op.value == nil {
			err = del(op.key)
		} else {
			err = put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
