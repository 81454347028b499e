package models

// CacheStatus describes the local standing of one aggregate ID.
type CacheStatus int

const (
	// StatusNotCached means the aggregate has never been pulled locally.
	StatusNotCached CacheStatus = iota
	// StatusCached means a clean local snapshot exists.
	StatusCached
	// StatusModified means the snapshot has offline writes pending
	// reconciliation. Modified takes priority over cached.
	StatusModified
)

func (s CacheStatus) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusModified:
		return "modified"
	default:
		return "notCached"
	}
}
