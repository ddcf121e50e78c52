package history

// DefaultMaxEntries bounds the history when no size is configured.
const DefaultMaxEntries = 100
