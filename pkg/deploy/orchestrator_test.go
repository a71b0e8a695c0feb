package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lanekit/pkg/detector"
	"lanekit/pkg/manifest"
	"lanekit/pkg/runner"
	"lanekit/pkg/scanner"

	"github.com/rs/zerolog"
)

// fakeRunner returns canned results matched by command prefix, in order.
type fakeRunner struct {
	responses []fakeResponse
	calls     []runner.Spec
}

type fakeResponse struct {
	prefix string
	result *runner.Result
}

func (f *fakeRunner) Run(_ context.Context, spec runner.Spec) *runner.Result {
	f.calls = append(f.calls, spec)
	key := spec.Name + " " + strings.Join(spec.Args, " ")
	for _, r := range f.responses {
		if strings.HasPrefix(key, r.prefix) {
			return r.result
		}
	}
	return &runner.Result{Output: ""}
}

func (f *fakeRunner) ranCommand(prefix string) bool {
	for _, spec := range f.calls {
		key := spec.Name + " " + strings.Join(spec.Args, " ")
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func createTestProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

// stubNpx puts a fake npx binary on PATH so install checks pass; commands
// never actually execute because tests use fakeRunner.
func stubNpx(t *testing.T) {
	t.Helper()
	bin := t.TempDir()
	if err := os.WriteFile(filepath.Join(bin, "npx"), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("stub npx: %v", err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newTestOrchestrator(t *testing.T, root string, run runner.Runner) *Orchestrator {
	t.Helper()
	stubNpx(t)
	scan := scanner.NewWithStrategies(zerolog.Nop(), scanner.WalkTier())
	return NewOrchestrator(root, "testapp", run, scan, zerolog.Nop())
}

func TestEdgeBuildIncompatSwitchesToWorkers(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json": `{"dependencies": {"next": "14.2.0"}}`,
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx @cloudflare/next-on-pages", &runner.Result{
			Output:   "⚡️ Build failed\nError: The following Node.js API is used: process.cwd\n",
			ExitCode: 1,
			Err:      errors.New("exit status 1"),
		}},
		{"npx opennextjs-cloudflare build", &runner.Result{Output: "bundle complete"}},
		{"npx wrangler deploy", &runner.Result{Output: "Deployed testapp\nhttps://testapp.acme.workers.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneEdge,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if result.Lane != detector.LaneWorkers {
		t.Errorf("Lane = %q, want workers", result.Lane)
	}
	if !result.Switched {
		t.Error("Switched = false, want true")
	}
	if result.SwitchReason == "" {
		t.Error("SwitchReason is empty")
	}
	if result.URL != "https://testapp.acme.workers.dev" {
		t.Errorf("URL = %q", result.URL)
	}

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("manifest not written after switch: %v", err)
	}
	if m.Target != detector.LaneWorkers || !m.Switched || m.SwitchReason == "" {
		t.Errorf("manifest = %+v, want workers/switched", m)
	}
}

func TestEdgeBuildCleanDeploysPages(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json": `{"dependencies": {"next": "14.2.0"}}`,
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx @cloudflare/next-on-pages", &runner.Result{Output: "⚡️ Completed `npx vercel build`.\n"}},
		{"npx wrangler pages deploy", &runner.Result{Output: "✨ Deployment complete!\nhttps://testapp.pages.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneEdge,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if result.Lane != detector.LaneEdge || result.Switched {
		t.Errorf("result = %+v, want unswitched edge", result)
	}
	if result.URL != "https://testapp.pages.dev" {
		t.Errorf("URL = %q", result.URL)
	}
	if run.ranCommand("npx opennextjs-cloudflare") {
		t.Error("workers build ran for a clean edge build")
	}
}

func TestEdgeBuildFailureWithoutMarkerIsFatal(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json": `{"dependencies": {"next": "14.2.0"}}`,
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx @cloudflare/next-on-pages", &runner.Result{
			Output:   "SyntaxError: unexpected token in app/page.tsx\n",
			ExitCode: 1,
			Err:      errors.New("exit status 1"),
		}},
	}}

	o := newTestOrchestrator(t, root, run)
	_, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneEdge,
		Origin: detector.OriginDetection,
	})
	if err == nil || !strings.Contains(err.Error(), "edge build failed") {
		t.Fatalf("err = %v, want fatal edge build failure", err)
	}
	if run.ranCommand("npx opennextjs-cloudflare") {
		t.Error("workers build ran for an ordinary build failure")
	}
}

func TestWorkersHealsEdgeDeclaredRoutes(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json":           `{"dependencies": {"next": "14.2.0"}}`,
		"app/api/users/route.ts": "export const runtime = 'edge'\nexport async function GET() {}\n",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx opennextjs-cloudflare build", &runner.Result{Output: "bundle complete"}},
		{"npx wrangler deploy", &runner.Result{Output: "https://testapp.acme.workers.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneWorkers,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if result.Lane != detector.LaneWorkers || result.URL == "" {
		t.Errorf("result = %+v", result)
	}

	patched, err := os.ReadFile(filepath.Join(root, "app/api/users/route.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(patched), "'edge'") {
		t.Errorf("route still declares edge runtime:\n%s", patched)
	}
}

func TestStaticDeploysPrebuiltOutput(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"out/index.html": "<html></html>",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx wrangler pages deploy out", &runner.Result{Output: "https://testapp.pages.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneStatic,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if result.URL != "https://testapp.pages.dev" {
		t.Errorf("URL = %q", result.URL)
	}
	if run.ranCommand("npx next build") {
		t.Error("build ran despite prebuilt output")
	}
}

func TestStaticBuildsNextProjectWhenNoOutput(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json": `{"dependencies": {"next": "14.2.0"}}`,
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx next build", &runner.Result{Output: "export finished"}},
		{"npx wrangler pages deploy", &runner.Result{Output: "https://testapp.pages.dev\n"}},
	}}
	// simulate the build producing out/ on first invocation
	buildingRunner := &sideEffectRunner{inner: run, prefix: "npx next build", effect: func() {
		if err := os.MkdirAll(filepath.Join(root, "out"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, "out", "index.html"), []byte("<html></html>"), 0644); err != nil {
			t.Fatal(err)
		}
	}}

	o := newTestOrchestrator(t, root, buildingRunner)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneStatic,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if result.URL != "https://testapp.pages.dev" {
		t.Errorf("URL = %q", result.URL)
	}
}

// sideEffectRunner triggers a filesystem side effect when a matching
// command runs, then delegates to the wrapped runner.
type sideEffectRunner struct {
	inner  *fakeRunner
	prefix string
	effect func()
}

func (s *sideEffectRunner) Run(ctx context.Context, spec runner.Spec) *runner.Result {
	key := spec.Name + " " + strings.Join(spec.Args, " ")
	if strings.HasPrefix(key, s.prefix) {
		s.effect()
	}
	return s.inner.Run(ctx, spec)
}

func TestStaticBuildEnvExcludesSecrets(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"out/index.html":  "<html></html>",
		".env.production": "NEXT_PUBLIC_API_URL=https://api.example.com\nDATABASE_PASSWORD=hunter2\n",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx wrangler pages deploy", &runner.Result{Output: "https://testapp.pages.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	if _, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneStatic,
		Origin: detector.OriginDetection,
	}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if len(run.calls) != 1 {
		t.Fatalf("expected one command, got %d", len(run.calls))
	}
	env := run.calls[0].Env
	if _, ok := env["NEXT_PUBLIC_API_URL"]; !ok {
		t.Error("public variable missing from static deploy env")
	}
	if _, ok := env["DATABASE_PASSWORD"]; ok {
		t.Error("secret leaked into static deploy env")
	}
}

func TestDeclaredButUnsuppliedVarsGetPreviewDefaults(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"out/index.html": "<html></html>",
		".env.example":   "NEXT_PUBLIC_API_URL=\nAPI_SECRET=\n",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx wrangler pages deploy", &runner.Result{Output: "https://testapp.pages.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	if _, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneStatic,
		Origin: detector.OriginDetection,
	}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	env := run.calls[0].Env
	if env["NEXT_PUBLIC_API_URL"] == "" {
		t.Error("declared public variable got no preview default")
	}
	if _, ok := env["API_SECRET"]; ok {
		t.Error("secret-like name received a synthesized value")
	}
}

func TestProjectNameReachesDeployTool(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"out/index.html": "<html></html>",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx wrangler pages deploy", &runner.Result{Output: "https://testapp.pages.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	if _, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneStatic,
		Origin: detector.OriginDetection,
	}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	args := run.calls[0].Args
	found := false
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "--project-name" && args[i+1] == "testapp" {
			found = true
		}
	}
	if !found {
		t.Errorf("project name missing from deploy invocation: %v", args)
	}
}

func TestSwitchedDeploySynthesizesWorkersDefaults(t *testing.T) {
	root := createTestProject(t, map[string]string{
		"package.json": `{"dependencies": {"next": "14.2.0"}}`,
		".env.example": "INTERNAL_FLAG=\n",
	})

	run := &fakeRunner{responses: []fakeResponse{
		{"npx @cloudflare/next-on-pages", &runner.Result{
			Output:   "Error: The following Node.js API is used: process.cwd\n",
			ExitCode: 1,
			Err:      errors.New("exit status 1"),
		}},
		{"npx opennextjs-cloudflare build", &runner.Result{Output: "bundle complete"}},
		{"npx wrangler deploy", &runner.Result{Output: "https://testapp.acme.workers.dev\n"}},
	}}

	o := newTestOrchestrator(t, root, run)
	result, err := o.Deploy(context.Background(), detector.DetectionResult{
		Lane:   detector.LaneEdge,
		Origin: detector.OriginDetection,
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if !result.Switched {
		t.Fatal("expected a mid-build switch to workers")
	}

	// The edge allow-list rejects INTERNAL_FLAG; the workers deploy the
	// attempt actually landed on must still synthesize its default.
	var deployEnv map[string]string
	for _, spec := range run.calls {
		if len(spec.Args) >= 2 && spec.Args[0] == "wrangler" && spec.Args[1] == "deploy" {
			deployEnv = spec.Env
		}
	}
	if deployEnv == nil {
		t.Fatal("wrangler deploy was never invoked")
	}
	if deployEnv["INTERNAL_FLAG"] == "" {
		t.Errorf("workers deploy env lacks the synthesized default: %v", deployEnv)
	}
}

func TestUnsupportedLane(t *testing.T) {
	root := t.TempDir()
	o := newTestOrchestrator(t, root, &fakeRunner{})
	if _, err := o.Deploy(context.Background(), detector.DetectionResult{Lane: "vm"}); err == nil {
		t.Fatal("expected error for unsupported lane")
	}
}
