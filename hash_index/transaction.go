package hash_index

// Transaction is an opaque token threaded through index operations for a
// future transaction layer. The index does not inspect it.
type Transaction struct {
	id uint64
}

func NewTransaction(id uint64) *Transaction {

	return &Transaction{id: id}
}

func (txn *Transaction) Id() uint64 {

	return txn.id
}
