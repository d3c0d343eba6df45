package path_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelynx/kronoa/internal/kerrs"
	"github.com/codelynx/kronoa/pkg/path"
)

func TestValidateContentPath(t *testing.T) {
	cases := []struct {
		name    string
		p       string
		wantErr bool
	}{
		{"ordinary", "blog/post.html", false},
		{"single segment", "index.html", false},
		{"empty", "", true},
		{"leading slash", "/index.html", true},
		{"dot segment", "a/./b", true},
		{"dotdot segment", "a/../b", true},
		{"empty segment", "a//b", true},
		{"dot prefixed segment", "a/.hidden", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := path.ValidateContentPath(tc.p)
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, kerrs.KindInvalidPath, kerrs.Of(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"whole bucket", "", false},
		{"prefix with trailing slash", "objects/ab/", false},
		{"ordinary key", "objects/ab/cd.dat", false},
		{"bare slash", "/", true},
		{"dotdot segment", "objects/../etc", true},
		{"empty segment", "objects//ab", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := path.ValidateKey(tc.key)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateKeyAllowsDotPrefixedSegments(t *testing.T) {
	// Unlike content paths, backend keys must allow the reserved
	// metadata namespace itself (.production.json, .lock, etc).
	require.NoError(t, path.ValidateKey(".production.json"))
	require.NoError(t, path.ValidateKey(".pending/10007"))
}

func TestValidateLabel(t *testing.T) {
	cases := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{"ordinary", "alice-hotfix", false},
		{"empty", "", true},
		{"slash", "alice/hotfix", true},
		{"dotdot", "..", true},
		{"dot prefixed", ".alice", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := path.ValidateLabel(tc.label)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
