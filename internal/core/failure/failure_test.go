package failure_test

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xlo-tools/xlo/internal/core/failure"
)

func TestError_IsKindAndCause(t *testing.T) {
	t.Parallel()
	err := failure.New(failure.ErrAssetDownload, "ao1/lesson_01.mp3", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, failure.ErrAssetDownload))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, failure.ErrArchive))
	assert.Equal(t, "asset download failed: ao1/lesson_01.mp3: unexpected EOF", err.Error())
}

func TestError_NoCause(t *testing.T) {
	t.Parallel()
	err := failure.New(failure.ErrInvalidAssetName, "../evil.sh", nil)
	assert.Equal(t, "invalid media file name: ../evil.sh", err.Error())
	assert.True(t, errors.Is(err, failure.ErrInvalidAssetName))
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.True(t, failure.Fatal(failure.New(failure.ErrAuth, "", errors.New("401"))))
	assert.True(t, failure.Fatal(failure.New(failure.ErrDirectory, "/x", nil)))
	assert.False(t, failure.Fatal(failure.New(failure.ErrCatalogFetch, "ao1", nil)))
	assert.False(t, failure.Fatal(errors.New("plain")))
}

func TestSet_ConcurrentAdd(t *testing.T) {
	t.Parallel()
	var s failure.Set
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(failure.New(failure.ErrAssetDownload, "ao1", nil))
		}()
	}
	wg.Wait()
	s.Add(nil)
	s.Add(failure.New(failure.ErrArchive, "ao2", nil))

	assert.Equal(t, 51, s.Len())
	assert.Equal(t, 50, s.Count(failure.ErrAssetDownload))
	assert.Len(t, s.ForUnit("ao2"), 1)
	assert.Empty(t, s.ForUnit("ao3"))
}
