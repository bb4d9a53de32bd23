//go:build !windows

package watch

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatalFsnotifyError(t *testing.T) {
	assert.True(t, isFatalFsnotifyError(syscall.ENOSPC))
	assert.True(t, isFatalFsnotifyError(fmt.Errorf("add watch: %w", syscall.EMFILE)))
	assert.True(t, isFatalFsnotifyError(syscall.ENFILE))
	assert.False(t, isFatalFsnotifyError(syscall.EACCES))
	assert.False(t, isFatalFsnotifyError(fmt.Errorf("queue overflow")))
}
