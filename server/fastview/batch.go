package fastview

// Batch coalesces element updates: ops for the same element and key overwrite one another,
// so only the latest value of each is sent. Elements and keys keep the order in which they
// were first added. Batch is not safe for concurrent use.
type Batch struct {
	order []string
	eles  map[string]*opSet
}

type opSet struct {
	keys   []string
	values map[string]string
}

func NewBatch() *Batch {
	return &Batch{eles: map[string]*opSet{}}
}

// Add merges updates into the batch.
func (b *Batch) Add(updates ...EleUpdate) {
	for _, update := range updates {
		set, ok := b.eles[update.EleId]
		if !ok {
			set = &opSet{values: map[string]string{}}
			b.eles[update.EleId] = set
			b.order = append(b.order, update.EleId)
		}
		for _, op := range update.Ops {
			if _, seen := set.values[op.Key]; !seen {
				set.keys = append(set.keys, op.Key)
			}
			set.values[op.Key] = op.Value
		}
	}
}

// Len returns the number of distinct elements in the batch.
func (b *Batch) Len() int {
	return len(b.order)
}

// Flush returns the coalesced updates and empties the batch.
func (b *Batch) Flush() []EleUpdate {
	if len(b.order) == 0 {
		return nil
	}

	updates := make([]EleUpdate, 0, len(b.order))
	for _, id := range b.order {
		set := b.eles[id]
		update := EleUpdate{EleId: id, Ops: make([]Op, 0, len(set.keys))}
		for _, key := range set.keys {
			update.Ops = append(update.Ops, Op{Key: key, Value: set.values[key]})
		}
		updates = append(updates, update)
	}

	b.order = nil
	b.eles = map[string]*opSet{}
	return updates
}
