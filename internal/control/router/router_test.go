package router

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/Avi18971911/Tally/internal/control/handler"
	exportModel "github.com/Avi18971911/Tally/internal/export/model"
	exportService "github.com/Avi18971911/Tally/internal/export/service"
	"github.com/Avi18971911/Tally/internal/ingest/model"
	sessionModel "github.com/Avi18971911/Tally/internal/session/model"
	sessionService "github.com/Avi18971911/Tally/internal/session/service"
	"github.com/Avi18971911/Tally/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type nopSink struct{}

func (nopSink) ExportBatch(context.Context, exportService.ExportTarget, []model.LogRecord) error {
	return nil
}

type nopReport struct{}

func (nopReport) ReportPath(dir string) string {
	return filepath.Join(dir, "report.xlsx")
}

func (nopReport) Write(string, exportModel.RichReport) error {
	return nil
}

type pipePort struct {
	reader *io.PipeReader
	writer *io.PipeWriter
	sent   bytes.Buffer
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.reader.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.sent.Write(b) }
func (p *pipePort) Close() error                { return p.reader.Close() }

type testServer struct {
	server *httptest.Server
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	session, err := sessionService.NewSession(
		sessionService.Options{
			OutputDir:    dir,
			Threshold:    60,
			Report:       exportService.DefaultReportOptions(),
			KeywordScope: sessionModel.GlobalScope,
		},
		sessionService.Dependencies{
			RichReport: nopReport{},
			BatchSink:  nopSink{},
			OpenPort: func(name string, baudRate int) (source.Port, error) {
				reader, writer := io.Pipe()
				return &pipePort{reader: reader, writer: writer}, nil
			},
			ListPorts: func() ([]string, error) { return []string{"/dev/ttyS0"}, nil },
		},
		zap.NewNop(),
	)
	require.NoError(t, err)
	server := httptest.NewServer(CreateRouter(session, nil, zap.NewNop()))
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		session.Close(ctx)
	})
	return &testServer{server: server, dir: dir}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestRouter_Keywords(t *testing.T) {
	t.Run("should add a keyword and list it after the built-ins", func(t *testing.T) {
		ts := newTestServer(t)

		res := ts.do(t, http.MethodPost, "/keywords", handler.KeywordRequest{Keyword: "timeout"})

		assert.Equal(t, http.StatusCreated, res.StatusCode)
		body := decode[handler.KeywordsResponse](t, res)
		assert.Equal(t, []string{"ERROR", "FAIL", "WARNING", "timeout"}, body.Keywords)
	})

	t.Run("should map keyword violations onto status codes", func(t *testing.T) {
		ts := newTestServer(t)

		empty := ts.do(t, http.MethodPost, "/keywords", handler.KeywordRequest{Keyword: " "})
		duplicate := ts.do(t, http.MethodPost, "/keywords", handler.KeywordRequest{Keyword: "ERROR"})
		builtin := ts.do(t, http.MethodDelete, "/keywords/ERROR", nil)
		unknown := ts.do(t, http.MethodDelete, "/keywords/nope", nil)

		assert.Equal(t, http.StatusBadRequest, empty.StatusCode)
		assert.Equal(t, http.StatusConflict, duplicate.StatusCode)
		assert.Equal(t, http.StatusBadRequest, builtin.StatusCode)
		assert.Equal(t, http.StatusNotFound, unknown.StatusCode)
		message := decode[handler.ErrorMessage](t, builtin)
		assert.NotEmpty(t, message.Message)
	})

	t.Run("should reject malformed payloads", func(t *testing.T) {
		ts := newTestServer(t)
		req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/keywords", bytes.NewBufferString("{"))
		require.NoError(t, err)

		res, err := http.DefaultClient.Do(req)

		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestRouter_Files(t *testing.T) {
	t.Run("should load a file, show its records and export it", func(t *testing.T) {
		ts := newTestServer(t)
		path := filepath.Join(ts.dir, "run.log")
		require.NoError(t, os.WriteFile(path, []byte("10:00:00.000000 boot\n10:00:01.000000 ERROR disk\nbad\n"), 0o644))

		loaded := ts.do(t, http.MethodPost, "/files", handler.LoadFileRequest{SourceId: "run", Path: path})
		require.Equal(t, http.StatusOK, loaded.StatusCode)
		info := decode[sessionModel.SourceInfo](t, loaded)
		assert.Equal(t, 2, info.Buffered)

		require.Eventually(t, func() bool {
			res := ts.do(t, http.MethodGet, "/sources/run/records?filter=error", nil)
			return len(decode[handler.RecordsResponse](t, res).Records) == 1
		}, 5*time.Second, 10*time.Millisecond)

		exported := ts.do(t, http.MethodPost, "/sources/run/export", nil)
		require.Equal(t, http.StatusOK, exported.StatusCode)
		result := decode[sessionModel.ExportResult](t, exported)
		assert.Equal(t, 2, result.Records)
	})

	t.Run("should report unknown sources and missing files as not found", func(t *testing.T) {
		ts := newTestServer(t)

		missingSource := ts.do(t, http.MethodPost, "/sources/nope/export", nil)
		missingFile := ts.do(t, http.MethodPost, "/files", handler.LoadFileRequest{Path: filepath.Join(ts.dir, "none.log")})

		assert.Equal(t, http.StatusNotFound, missingSource.StatusCode)
		assert.Equal(t, http.StatusNotFound, missingFile.StatusCode)
	})
}

func TestRouter_Devices(t *testing.T) {
	t.Run("should start, command, stop and list devices", func(t *testing.T) {
		ts := newTestServer(t)

		started := ts.do(t, http.MethodPost, "/devices", sessionModel.DeviceRequest{Id: "dut", Port: "/dev/ttyS0", BaudRate: 9600})
		require.Equal(t, http.StatusCreated, started.StatusCode)

		conflict := ts.do(t, http.MethodPost, "/devices", sessionModel.DeviceRequest{Id: "dut", Port: "/dev/ttyS0", BaudRate: 9600})
		assert.Equal(t, http.StatusConflict, conflict.StatusCode)

		command := ts.do(t, http.MethodPost, "/devices/dut/commands", handler.CommandRequest{Command: "status"})
		assert.Equal(t, http.StatusNoContent, command.StatusCode)

		stopped := ts.do(t, http.MethodPost, "/devices/dut/stop", nil)
		require.Equal(t, http.StatusOK, stopped.StatusCode)
		assert.Equal(t, sessionModel.Stopped, decode[sessionModel.SourceInfo](t, stopped).State)

		closed := ts.do(t, http.MethodPost, "/devices/dut/commands", handler.CommandRequest{Command: "status"})
		assert.Equal(t, http.StatusConflict, closed.StatusCode)

		sources := decode[[]sessionModel.SourceInfo](t, ts.do(t, http.MethodGet, "/sources", nil))
		require.Len(t, sources, 1)
		assert.Equal(t, "dut", sources[0].Id)
	})

	t.Run("should refuse a device writing to an output already in use", func(t *testing.T) {
		ts := newTestServer(t)
		output := filepath.Join(ts.dir, "shared.txt")

		first := ts.do(t, http.MethodPost, "/devices", sessionModel.DeviceRequest{
			Id: "a", Port: "/dev/ttyS0", BaudRate: 9600, OutputPath: output,
		})
		second := ts.do(t, http.MethodPost, "/devices", sessionModel.DeviceRequest{
			Id: "b", Port: "/dev/ttyS1", BaudRate: 9600, OutputPath: output,
		})

		require.Equal(t, http.StatusCreated, first.StatusCode)
		assert.Equal(t, http.StatusConflict, second.StatusCode)
	})

	t.Run("should reject invalid device configurations", func(t *testing.T) {
		ts := newTestServer(t)

		res := ts.do(t, http.MethodPost, "/devices", sessionModel.DeviceRequest{Port: "/dev/ttyS0"})

		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("should list ports and reset the session", func(t *testing.T) {
		ts := newTestServer(t)

		ports := decode[handler.PortsResponse](t, ts.do(t, http.MethodGet, "/ports", nil))
		reset := ts.do(t, http.MethodPost, "/reset", nil)

		assert.Equal(t, []string{"/dev/ttyS0"}, ports.Ports)
		assert.Equal(t, http.StatusNoContent, reset.StatusCode)
	})

	t.Run("should not expose archive routes without an archive", func(t *testing.T) {
		ts := newTestServer(t)

		res := ts.do(t, http.MethodGet, "/archive/count?source_id=dut", nil)

		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
