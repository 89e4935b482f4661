// Package modal runs the profiling engine inside a Modal sandbox. The
// sandbox is created lazily on the first request and reused for the rest of
// the run, so per-task overhead stays at one exec plus the dataset upload.
package modal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	modalsdk "github.com/modal-labs/libmodal/modal-go"

	"github.com/dataprof/dataprof/internal/dataset"
	"github.com/dataprof/dataprof/internal/engine"
	"github.com/dataprof/dataprof/internal/util"
)

const (
	remoteDataDir = "/workspace/data"
	remoteWorkDir = "/workspace"
)

// Config holds the sandbox settings.
type Config struct {
	// AppName is the Modal app to attach sandboxes to. If empty, a unique
	// name is generated per engine.
	AppName string
	// Image is the registry reference of the image carrying the engine binary.
	Image string
	// Binary is the in-image path of the engine binary.
	Binary string
	// CPUs and Memory bound the sandbox, e.g. "2" and "4G".
	CPUs    string
	Memory  string
	Regions []string
	Verbose bool
}

// Engine executes profiling requests in a remote Modal sandbox.
type Engine struct {
	client *modalsdk.Client
	config Config

	mu       sync.Mutex
	sandbox  *modalsdk.Sandbox
	appName  string
	started  time.Time
	uploaded map[string]string
	cpuCount int
	memMiB   int
}

// New creates a Modal engine. The sandbox is not created until the first Run.
func New(cfg Config) (*Engine, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("modal engine requires an image reference")
	}
	if cfg.Binary == "" {
		return nil, fmt.Errorf("modal engine requires an engine binary path")
	}

	cpuCount, err := util.ParseCPUs(cfg.CPUs)
	if err != nil {
		return nil, fmt.Errorf("parsing cpus: %w", err)
	}
	memMiB, err := util.ParseMemory(cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("parsing memory: %w", err)
	}
	if memMiB <= 0 {
		memMiB = 2048
	}

	slog.Debug("initializing modal client")
	client, err := modalsdk.NewClient()
	if err != nil {
		return nil, fmt.Errorf("creating modal client: %w", err)
	}

	return &Engine{
		client:   client,
		config:   cfg,
		uploaded: make(map[string]string),
		cpuCount: cpuCount,
		memMiB:   memMiB,
	}, nil
}

// ensureSandbox creates the app and sandbox on first use.
func (e *Engine) ensureSandbox(ctx context.Context) (*modalsdk.Sandbox, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sandbox != nil {
		return e.sandbox, nil
	}

	appName := e.config.AppName
	if appName == "" {
		appName = fmt.Sprintf("dataprof-%d", time.Now().UnixNano())
	}

	slog.Debug("creating modal app", "name", appName)
	app, err := e.client.Apps.FromName(ctx, appName, &modalsdk.AppFromNameParams{
		CreateIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating modal app: %w", err)
	}

	image := e.client.Images.FromRegistry(e.config.Image, nil)

	slog.Debug("creating modal sandbox",
		"app", appName,
		"cpus", e.cpuCount,
		"memory_mib", e.memMiB,
		"regions", e.config.Regions)

	sandbox, err := e.client.Sandboxes.Create(ctx, app, image, &modalsdk.SandboxCreateParams{
		CPU:       float64(e.cpuCount),
		MemoryMiB: e.memMiB,
		Timeout:   24 * time.Hour,
		Verbose:   e.config.Verbose,
		Regions:   e.config.Regions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating modal sandbox: %w", err)
	}

	slog.Debug("modal sandbox created", "sandbox_id", sandbox.SandboxID)

	if _, err := e.execSimple(ctx, sandbox, fmt.Sprintf("mkdir -p %q %q", remoteWorkDir, remoteDataDir)); err != nil {
		sandbox.Terminate(ctx)
		return nil, fmt.Errorf("preparing sandbox workdir: %w", err)
	}

	e.appName = appName
	e.sandbox = sandbox
	e.started = time.Now()
	return sandbox, nil
}

// Run uploads the dataset if needed, executes the engine binary in the
// sandbox and decodes the result from its stdout.
func (e *Engine) Run(ctx context.Context, req engine.Request) (*engine.Response, error) {
	sandbox, err := e.ensureSandbox(ctx)
	if err != nil {
		return nil, err
	}

	remotePath, err := e.uploadDataset(ctx, sandbox, req.Dataset)
	if err != nil {
		return nil, fmt.Errorf("uploading dataset: %w", err)
	}

	remoteReq := req
	remoteReq.Dataset.Path = remotePath
	payload, err := json.Marshal(remoteReq)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	reqPath := filepath.Join(remoteWorkDir, fmt.Sprintf("request-%d.json", time.Now().UnixNano()))
	if err := e.writeRemote(ctx, sandbox, reqPath, payload); err != nil {
		return nil, fmt.Errorf("writing request file: %w", err)
	}

	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	execParams := &modalsdk.SandboxExecParams{
		Workdir: remoteWorkDir,
	}
	if req.Deadline > 0 {
		execParams.Timeout = req.Deadline
	}

	slog.Debug("executing in modal sandbox",
		"sandbox_id", sandbox.SandboxID,
		"algorithm", req.Algorithm,
		"deadline", req.Deadline)

	process, err := sandbox.Exec(ctx,
		[]string{"bash", "-c", fmt.Sprintf("%q < %q", e.config.Binary, reqPath)},
		execParams)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s after %v: %w", req.Algorithm, req.Deadline, engine.ErrTimeout)
		}
		return nil, fmt.Errorf("executing engine: %w", err)
	}

	var stdout, stderr bytes.Buffer
	done := make(chan struct{}, 2)
	go func() {
		io.Copy(&stdout, process.Stdout)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(&stderr, process.Stderr)
		done <- struct{}{}
	}()
	<-done
	<-done

	exitCode, err := process.Wait(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s after %v: %w", req.Algorithm, req.Deadline, engine.ErrTimeout)
		}
		return nil, fmt.Errorf("waiting for engine: %w", err)
	}
	if exitCode != 0 {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s after %v: %w", req.Algorithm, req.Deadline, engine.ErrTimeout)
		}
		return nil, fmt.Errorf("engine exited with code %d: %s", exitCode, firstLine(stderr.String()))
	}

	var res struct {
		Instances  map[string]int `json:"instances"`
		OutputPath string         `json:"output_path,omitempty"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("decoding engine output: %w", err)
	}

	resp := &engine.Response{Instances: res.Instances}
	if res.OutputPath != "" {
		out, err := e.downloadDataset(ctx, sandbox, req.Dataset, res.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("downloading output dataset: %w", err)
		}
		resp.OutputDataset = &out
	}
	return resp, nil
}

// uploadDataset copies the dataset file into the sandbox once per content
// hash and returns the remote path.
func (e *Engine) uploadDataset(ctx context.Context, sandbox *modalsdk.Sandbox, h dataset.Handle) (string, error) {
	e.mu.Lock()
	if remote, ok := e.uploaded[h.Hash]; ok {
		e.mu.Unlock()
		return remote, nil
	}
	e.mu.Unlock()

	remote := filepath.Join(remoteDataDir, h.Hash[:16]+"_"+filepath.Base(h.Path))
	content, err := os.ReadFile(h.Path)
	if err != nil {
		return "", fmt.Errorf("reading dataset: %w", err)
	}
	if err := e.writeRemote(ctx, sandbox, remote, content); err != nil {
		return "", err
	}

	slog.Debug("dataset uploaded", "sandbox_id", sandbox.SandboxID, "remote", remote)

	e.mu.Lock()
	e.uploaded[h.Hash] = remote
	e.mu.Unlock()
	return remote, nil
}

// downloadDataset fetches a transform output from the sandbox and derives a
// local handle from the original dataset.
func (e *Engine) downloadDataset(ctx context.Context, sandbox *modalsdk.Sandbox, src dataset.Handle, remote string) (dataset.Handle, error) {
	local := filepath.Join(os.TempDir(), fmt.Sprintf("dataprof-%d-%s", time.Now().UnixNano(), filepath.Base(remote)))

	f, err := sandbox.Open(ctx, remote, "r")
	if err != nil {
		return dataset.Handle{}, fmt.Errorf("opening remote output: %w", err)
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return dataset.Handle{}, fmt.Errorf("reading remote output: %w", err)
	}
	if err := os.WriteFile(local, content, 0o644); err != nil {
		return dataset.Handle{}, fmt.Errorf("writing local output: %w", err)
	}

	out, err := src.Derive(local)
	if err != nil {
		return dataset.Handle{}, err
	}

	// The downloaded file is new content, so cache it for future uploads.
	e.mu.Lock()
	e.uploaded[out.Hash] = remote
	e.mu.Unlock()
	return out, nil
}

// writeRemote writes content to a file inside the sandbox.
func (e *Engine) writeRemote(ctx context.Context, sandbox *modalsdk.Sandbox, path string, content []byte) error {
	f, err := sandbox.Open(ctx, path, "w")
	if err != nil {
		return fmt.Errorf("opening remote file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("writing remote file: %w", err)
	}
	if err := f.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing remote file: %w", err)
	}
	return f.Close()
}

func (e *Engine) execSimple(ctx context.Context, sandbox *modalsdk.Sandbox, cmd string) (int, error) {
	process, err := sandbox.Exec(ctx, []string{"bash", "-c", cmd}, &modalsdk.SandboxExecParams{})
	if err != nil {
		return -1, err
	}
	io.Copy(io.Discard, process.Stdout)
	io.Copy(io.Discard, process.Stderr)
	return process.Wait(ctx)
}

// Close terminates the sandbox. Safe to call when no sandbox was ever
// created.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	sandbox := e.sandbox
	e.sandbox = nil
	started := e.started
	e.mu.Unlock()

	if sandbox == nil {
		return nil
	}

	slog.Debug("terminating modal sandbox",
		"sandbox_id", sandbox.SandboxID,
		"app", e.appName,
		"uptime", time.Since(started),
		"estimated_cost_usd", e.cost(started))

	if err := sandbox.Terminate(ctx); err != nil {
		if strings.Contains(err.Error(), "already terminated") ||
			strings.Contains(err.Error(), "not found") {
			return nil
		}
		return fmt.Errorf("terminating sandbox: %w", err)
	}
	return nil
}

// cost estimates sandbox spend from published per-second CPU and memory
// rates.
func (e *Engine) cost(started time.Time) float64 {
	duration := time.Since(started).Seconds()
	cpuCost := duration * float64(e.cpuCount) * 0.000463
	memoryCost := duration * (float64(e.memMiB) / 1024.0) * 0.000058
	return cpuCost + memoryCost
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
