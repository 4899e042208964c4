package resource

import "context"

// MessageStore persists messages. Read-marker stamps and audit-log
// appends go through Mutate, which runs fn atomically against the stored
// record: a Find copy followed by Update would let concurrent readers
// overwrite each other's audit entries.
type MessageStore interface {
	Create(ctx context.Context, msg *Message) error
	Find(ctx context.Context, id string) (*Message, error)
	Update(ctx context.Context, msg *Message) error
	Mutate(ctx context.Context, id string, fn func(*Message) error) error
	List(ctx context.Context) ([]*Message, error)
}

// DocumentStore persists documents under the same contract.
type DocumentStore interface {
	Create(ctx context.Context, doc *Document) error
	Find(ctx context.Context, id string) (*Document, error)
	Update(ctx context.Context, doc *Document) error
	Mutate(ctx context.Context, id string, fn func(*Document) error) error
	List(ctx context.Context) ([]*Document, error)
}
