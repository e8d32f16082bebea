package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestLog_NewestFirst(t *testing.T) {
	l := New(WithClock(stepClock()))
	l.Add("Archivo listo", nil)
	l.Add("Datos: respuesta 404.", map[string]int{"status": 404})

	assert.Equal(t, []string{
		`[14:30:02] Datos: respuesta 404. {"status":404}`,
		`[14:30:01] Archivo listo`,
	}, l.Lines())
}

func TestLog_BoundedRing(t *testing.T) {
	l := New(WithCapacity(2), WithClock(stepClock()))
	l.Add("one", nil)
	l.Add("two", nil)
	l.Add("three", nil)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Message)
	assert.Equal(t, "two", entries[1].Message)
}

func TestTask_OldestFirst(t *testing.T) {
	l := New(WithClock(stepClock()))
	first := l.Task("Proceso 1")
	second := l.Task("Proceso 2")

	first.Add("lectura...", nil)
	first.Add("Aprobado.", nil)

	assert.Equal(t, []string{"[14:30:01] lectura...", "[14:30:02] Aprobado."}, first.Lines())

	tasks := l.Tasks()
	require.Len(t, tasks, 2)
	assert.Same(t, second, tasks[0])
	assert.Empty(t, l.Entries(), "task entries stay out of the main log")
}

func TestLog_MirrorsToZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := New(WithLogger(zap.New(core)))

	l.Add("Formulario reiniciado.", nil)
	l.Task("Proceso").Add("lectura...", map[string]string{"token": "abc"})

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Formulario reiniciado.", logs.All()[0].Message)
	assert.Equal(t, "Proceso", logs.All()[1].ContextMap()["scope"])
}

func TestLog_Clear(t *testing.T) {
	l := New()
	l.Add("x", nil)
	l.Task("t")
	l.Clear()

	assert.Empty(t, l.Entries())
	assert.Empty(t, l.Tasks())
}
