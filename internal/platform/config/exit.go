package config

import (
	"fmt"
	"io"
	"os"
	"sort"

	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

var (
	exitWriter io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// Exit reports err under the given prefix and exits with the status its
// domain code maps to. Metadata is listed one entry per line.
func Exit(prefix string, err error) {
	fmt.Fprintf(exitWriter, "%s: %v\n", prefix, err)
	meta := apperrors.MetadataOf(err)
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(exitWriter, "  %s: %s\n", k, meta[k])
	}
	exitFunc(apperrors.CodeOf(err).ExitCode())
}
