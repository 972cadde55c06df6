package engine

type Options struct {
	Name     string
	Hash     int
	MaxDepth int
	// ProgressMinNodes suppresses progress reports of tiny searches.
	ProgressMinNodes int
}

func NewOptions() Options {
	return Options{
		Name:             "duel",
		Hash:             16,
		MaxDepth:         maxHeight,
		ProgressMinNodes: 10_000,
	}
}
