package memory

// Store persists validated memory requests.
// Writer is the file-backed implementation; callers depend on this interface
// so the create operation can be exercised without touching disk.
type Store interface {
	Write(req *CreateMemoryRequest) (*WriteResult, error)
}
