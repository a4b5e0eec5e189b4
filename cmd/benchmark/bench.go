package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
	benchKey = "bench-key-12345"
)

var (
	streamChunk1 = []byte(`data: {"id":"bench-1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"content":"Bench"}}]}` + "\n\n")
	streamChunk2 = []byte(`data: {"id":"bench-1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"content":"mark"}}]}` + "\n\n")
	streamChunk3 = []byte(`data: {"id":"bench-1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"content":" safe"}}]}` + "\n\n")
	streamChunk4 = []byte(`data: {"id":"bench-1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"delta":{"content":" response"},"finish_reason":"stop"}]}` + "\n\n")
	streamDone   = []byte("data: [DONE]\n\n")
	unaryResp    = []byte(`{"id":"bench-123","object":"chat.completion","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello"}}]}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	target := flag.String("target", "chat", "Endpoint to attack: chat, models or settings")
	stream := flag.Bool("stream", false, "Use streaming chat requests")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	reload := flag.Bool("reload", false, "Rewrite a credential every 500ms to force registry rebuilds under load")
	flag.Parse()

	go startMockServer()

	fmt.Println("Building application...")
	bin, err := filepath.Abs("bin/server")
	if err != nil {
		log.Fatalf("Failed to resolve binary path: %v", err)
	}
	buildCmd := exec.Command("go", "build", "-o", bin, "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// the server reads config.yaml from its working directory
	workDir, err := os.MkdirTemp("", "chat-registry-bench")
	if err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)
	if err := os.WriteFile(filepath.Join(workDir, "config.yaml"), []byte(benchConfig), 0o644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}

	fmt.Println("Starting application...")
	cmd := exec.Command(bin)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "OPENAI_API_KEY=mock-key", "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")

	done := make(chan struct{})
	go monitorResources(cmd.Process.Pid, done)

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		chaosConcurrency := min(max(*rate/10, 5), 50)
		go startChaosMonkey(base+"/v1/chat/completions", chaosConcurrency, done)
	}
	if *reload {
		fmt.Println("RELOAD MODE ENABLED: rewriting XAI_API_KEY every 500ms")
		go churnCredentials(base, done)
	}

	targeter, err := newTargeter(base, *target, *stream)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", *target, *duration, *rate)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("Status codes:    ", metrics.StatusCodes)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)
				uniqueErrors[msg] = true
				count++
			}
		}
	}
}

func newTargeter(base, target string, stream bool) (vegeta.Targeter, error) {
	header := func() http.Header {
		return http.Header{
			"Content-Type":      []string{"application/json"},
			"Authorization":     []string{"Bearer " + benchKey},
			"X-Benchmark-Start": []string{strconv.FormatInt(time.Now().UnixNano(), 10)},
		}
	}

	switch target {
	case "models":
		return func(t *vegeta.Target) error {
			t.Method = http.MethodGet
			t.URL = base + "/v1/models"
			t.Header = header()
			return nil
		}, nil
	case "settings":
		return func(t *vegeta.Target) error {
			t.Method = http.MethodGet
			t.URL = base + "/v1/settings/ollama"
			t.Header = header()
			return nil
		}, nil
	case "chat":
		body := fmt.Sprintf(`{"model": "gpt-4.1-mini", "stream": %t, "messages": [{"role": "user", "content": "Hello"}]}`, stream)
		return func(t *vegeta.Target) error {
			t.Method = http.MethodPost
			t.URL = base + "/v1/chat/completions"
			t.Body = []byte(body)
			t.Header = header()
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}

// churnCredentials writes through the credentials API so the server's
// watcher rebuilds the registry while the attack is running.
func churnCredentials(base string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-ticker.C:
			body := fmt.Sprintf(`{"value": "xai-bench-%d"}`, i)
			req, _ := http.NewRequest(http.MethodPut, base+"/v1/credentials/XAI_API_KEY", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+benchKey)
			resp, err := client.Do(req)
			if err != nil {
				fmt.Printf("DEBUG: credential write failed: %v\n", err)
				continue
			}
			resp.Body.Close()
		}
	}
}

func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
				},
			}

			payload := `{"model": "gpt-4.1-mini", "stream": true, "messages": [{"role": "user", "content": "Chaos Request"}]}`

			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("Authorization", "Bearer "+benchKey)

					resp, err := client.Do(req)
					if err == nil {
						resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
}

func startMockServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if val, ok := req["stream"].(bool); ok && val {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher, _ := w.(http.Flusher)

			for _, chunk := range [][]byte{streamChunk1, streamChunk2, streamChunk3, streamChunk4} {
				time.Sleep(50 * time.Millisecond)
				_, _ = w.Write(chunk)
				flusher.Flush()
			}
			_, _ = w.Write(streamDone)
			flusher.Flush()
			return
		}

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func monitorResources(pid int, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage (ps) ---")
	fmt.Printf("% -10s % -10s % -10s\n", "Time", "RSS(MB)", "CPU(%)")

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "rss=,%cpu=").Output()
			if err != nil {
				continue
			}
			fields := strings.Fields(string(out))
			if len(fields) < 2 {
				continue
			}
			rss, _ := strconv.ParseFloat(fields[0], 64)
			cpu, _ := strconv.ParseFloat(fields[1], 64)

			fmt.Printf("% -10s % -10.2f % -10.2f\n", time.Now().Format("15:04:05"), rss/1024, cpu)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: development
  api_keys: ["%s"]
rate_limit:
  requests_per_second: 100000
  burst: 100000
log:
  level: "error"
settings:
  context: store
  driver: memory
reload:
  drain_timeout: 5s
vendors:
  openai:
    base_url: "http://localhost:%d/v1"
`, appPort, benchKey, mockPort)
