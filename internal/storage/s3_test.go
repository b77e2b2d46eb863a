package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("resume.pdf")

	assert.True(t, strings.HasPrefix(key, "resumes/"))
	assert.True(t, strings.HasSuffix(key, "-resume.pdf"))
}

func TestObjectKey_UniquePerCall(t *testing.T) {
	assert.NotEqual(t, ObjectKey("resume.pdf"), ObjectKey("resume.pdf"))
}
