package storage

import "filezone/internal/tree"

var (
	_ tree.Storage = (*LocalStorage)(nil)
	_ tree.Storage = (*S3Storage)(nil)
)
