package types

// ReceiptStatus reports whether a call committed its effects.
type ReceiptStatus uint8

const (
	ReceiptFailed ReceiptStatus = iota
	ReceiptSuccess
)

// Receipt summarises the outcome of an executed call. A failed call still
// consumes its nonce but leaves no other trace in state.
type Receipt struct {
	Hash   string        `json:"hash"`
	From   string        `json:"from"`
	Method string        `json:"method"`
	Nonce  uint64        `json:"nonce"`
	Status ReceiptStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
	// Kind classifies Error for clients deciding whether to retry.
	Kind   string      `json:"errorKind,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Events []*Event    `json:"events,omitempty"`
}

// Succeeded reports whether the call committed.
func (r *Receipt) Succeeded() bool { return r != nil && r.Status == ReceiptSuccess }
