package commander

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/core-tools/edr-gen-go/pkg/events"
	"github.com/core-tools/edr-gen-go/pkg/rowsource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCSVSession(t *testing.T, input string) (*Commander, string, int) {
	t.Helper()
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0644))
	outputPath := filepath.Join(dir, "log.csv")

	source, err := rowsource.NewCSVSource(inputPath, ',')
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })

	sink, err := events.NewCSVSink(outputPath, testLogger())
	require.NoError(t, err)

	cmdr := NewCommander(source, sink, Options{}, testLogger())
	t.Cleanup(func() { cmdr.Close() })

	processed := 0
	for cmdr.ReadNext() {
		processed++
	}
	require.NoError(t, sink.Close())
	return cmdr, outputPath, processed
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestSession_GoodInput(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "artifact.txt")
	input := strings.Join([]string{
		"new_file," + target,
		"mod_file," + target,
		"pause,10",
		"delete_file," + target,
		"connect_self,known payload",
	}, "\n") + "\n"

	cmdr, outputPath, processed := runCSVSession(t, input)

	assert.Equal(t, 5, processed)
	assert.Equal(t, 0, cmdr.NumErrors())

	records := readOutput(t, outputPath)
	// every row except pause produced one event record
	require.Len(t, records, 4)
	for _, record := range records {
		assert.Len(t, record, 14)
		assert.NotEqual(t, events.EventKindError, record[0])
	}
}

func TestSession_BadInput(t *testing.T) {
	dir := t.TempDir()
	input := strings.Join([]string{
		"explode,now",
		"new_file," + filepath.Join(dir, "kept.txt"),
		"pause,never",
		"connect,127.0.0.1,0,payload",
		"connect,127.0.0.1,badport,payload",
		"delete_file," + filepath.Join(dir, "missing.txt"),
	}, "\n") + "\n"

	cmdr, outputPath, processed := runCSVSession(t, input)

	assert.Equal(t, 6, processed)
	assert.Equal(t, 5, cmdr.NumErrors())

	records := readOutput(t, outputPath)
	var errorRecords, eventRecords int
	for _, record := range records {
		if record[0] == events.EventKindError {
			assert.Len(t, record, 3)
			errorRecords++
		} else {
			assert.Len(t, record, 14)
			eventRecords++
		}
	}
	assert.Equal(t, 5, errorRecords)
	assert.Equal(t, 1, eventRecords)
}

func TestSession_EmptyInput(t *testing.T) {
	cmdr, outputPath, processed := runCSVSession(t, "")

	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, cmdr.NumErrors())
	assert.Empty(t, readOutput(t, outputPath))
}
