package objectstore

import "context"

// Stat reports whether hexDigest's blob exists and, if so, its size
// in bytes, by consulting the backend's directory listing for the
// digest's shard rather than reading the full payload.
func (s *Store) Stat(ctx context.Context, hexDigest string) (size int64, exists bool, err error) {
	shardPrefix := "objects/" + hexDigest[:2] + "/"
	entries, err := s.backend.List(ctx, shardPrefix, "/")
	if err != nil {
		return 0, false, err
	}
	want := hexDigest + ".dat"
	for _, e := range entries {
		if e.Key == want {
			return e.Size, true, nil
		}
	}
	return 0, false, nil
}
