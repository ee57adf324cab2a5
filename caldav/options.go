package caldav

// PutOptions controls conditional semantics for Client.PutEvent. Create
// requests If-None-Match: * so an existing resource at the same href is
// never silently overwritten; updates are sent unconditionally, mirroring
// the engine's own create/update decision rather than re-deriving it from
// ETags.
type PutOptions struct {
	Create bool
}
