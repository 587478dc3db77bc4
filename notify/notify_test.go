package notify

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderTickets(t *testing.T) {
	r := NewRecorder()
	a := r.Loading(Content{Message: "Awaiting for user confirmation"})
	b := r.Loading(Content{Message: "Waiting for transaction to complete.", Link: "https://sepolia.voyager.online/tx/0x1"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, []TicketID{a, b}, r.Open())

	r.Remove(a)
	assert.Equal(t, []TicketID{b}, r.Open())
	r.Remove(b)
	r.Success(Content{Message: "Transaction completed successfully!"}, Options{Icon: "🎉"})
	assert.Empty(t, r.Open())

	assert.Equal(t, 2, r.Count(KindLoading))
	assert.Equal(t, 2, r.Count(KindRemove))
	last, ok := r.Last(KindSuccess)
	require.True(t, ok)
	assert.Equal(t, "🎉", last.Options.Icon)

	_, ok = r.Last(KindError)
	assert.False(t, ok)
	r.Error("Cannot access account")
	last, _ = r.Last(KindError)
	assert.Equal(t, "Cannot access account", last.Content.Message)

	r.Reset()
	assert.Empty(t, r.Records())
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Loading(Content{Message: "x"})
			r.Remove(id)
		}()
	}
	wg.Wait()
	assert.Empty(t, r.Open())
	assert.Equal(t, 32, len(r.Records()))
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := NewMulti(a, b)

	id := m.Loading(Content{Message: "pending"})
	require.Len(t, a.Open(), 1)
	require.Len(t, b.Open(), 1)
	assert.NotEqual(t, a.Open()[0], b.Open()[0])

	m.Remove(id)
	assert.Empty(t, a.Open())
	assert.Empty(t, b.Open())

	m.Remove(id) // unknown ids are ignored
	assert.Equal(t, 1, a.Count(KindRemove))

	m.Error("boom")
	m.Success(Content{Message: "done"}, Options{})
	assert.Equal(t, 1, b.Count(KindError))
	assert.Equal(t, 1, b.Count(KindSuccess))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	id := c.Loading(Content{Message: "Waiting for transaction to complete.", Link: "https://voyager.online/tx/0x1"})
	assert.Equal(t, 1, c.Pending())
	c.Remove(id)
	assert.Equal(t, 0, c.Pending())
	c.Success(Content{Message: "Transaction completed successfully!"}, Options{})
	c.Error("Insufficient balance for transaction")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "... Waiting for transaction to complete. https://voyager.online/tx/0x1", lines[0])
	assert.Equal(t, "ok Transaction completed successfully!", lines[1])
	assert.Equal(t, "error Insufficient balance for transaction", lines[2])
}

func TestContentString(t *testing.T) {
	assert.Equal(t, "a", Content{Message: "a"}.String())
	assert.Equal(t, "a b", Content{Message: "a", Link: "b"}.String())
	assert.NotEqual(t, Discard.Loading(Content{}), Discard.Loading(Content{}))
}
