package storage

// DefaultRegion is used when no region is configured; most S3-compatible
// services ignore it.
const DefaultRegion = "us-east-1"
