package message

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetQuiet(false)
		SetSilent(false)
	})
	return &buf
}

func TestPrefixes(t *testing.T) {
	buf := capture(t)

	Info("syncing %s", "us-phoenix-1")
	Success("done")
	Warning("skipped")
	Error("failed")

	assert.Equal(t, "[*] syncing us-phoenix-1\n[+] done\n[!] skipped\n[-] failed\n", buf.String())
}

func TestQuietAndSilent(t *testing.T) {
	buf := capture(t)

	SetSilent(true)
	Warning("hidden")
	Error("hidden")
	Critical("always")

	assert.Equal(t, "[!!] always\n", buf.String())
}

func TestTable(t *testing.T) {
	buf := capture(t)

	Table([]string{"STAGE", "RECORDS"}, [][]string{{"network/subnets", "3"}, {"objectstorage/buckets", "12"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "STAGE"))
	assert.Equal(t, strings.Index(lines[0], "RECORDS"), strings.Index(lines[2], "12"))
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestTableColouredHeaderStaysAligned(t *testing.T) {
	buf := capture(t)
	SetNoColor(false)
	t.Cleanup(func() { SetNoColor(true) })

	Table([]string{"STAGE", "RECORDS"}, [][]string{{"network/subnets", "3"}, {"objectstorage/buckets", "12"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, ansi.MatchString(lines[0]))
	assert.False(t, ansi.MatchString(lines[2]))

	header := ansi.ReplaceAllString(lines[0], "")
	assert.Equal(t, strings.Index(header, "RECORDS"), strings.Index(lines[2], "12"))
	assert.Equal(t, strings.Index(header, "RECORDS"), strings.Index(lines[1], "3"))
}
