package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

type LoadTestConfig struct {
	BaseURL           string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
	Email             string
	Password          string
}

type Stats struct {
	successCount  atomic.Int64
	errorCount    atomic.Int64
	limitedCount  atomic.Int64
	responseTimes []float64
	mu            sync.Mutex
}

func (s *Stats) addResponseTime(duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseTimes = append(s.responseTimes, duration)
}

func (s *Stats) getResponseTimes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.responseTimes)
}

func doJSON(client *fasthttp.Client, method, url, token string, body any, out any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		req.SetBody(payload)
	}

	if err := client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return 0, err
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return resp.StatusCode(), err
		}
	}
	return resp.StatusCode(), nil
}

// prepare logs in (registering on first run) and creates the customer all
// load requests write to.
func prepare(client *fasthttp.Client, config LoadTestConfig) (string, string, error) {
	var auth struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"name": "Load Test", "email": config.Email, "password": config.Password}
	status, err := doJSON(client, fasthttp.MethodPost, config.BaseURL+"/auth/login", "", creds, &auth)
	if err != nil {
		return "", "", err
	}
	if status != fasthttp.StatusOK {
		status, err = doJSON(client, fasthttp.MethodPost, config.BaseURL+"/auth/register", "", creds, &auth)
		if err != nil {
			return "", "", err
		}
		if status != fasthttp.StatusCreated {
			return "", "", fmt.Errorf("register failed with status %d", status)
		}
	}

	var customer struct {
		ID string `json:"id"`
	}
	status, err = doJSON(client, fasthttp.MethodPost, config.BaseURL+"/customers", auth.Token,
		map[string]string{"name": "Load Customer", "phone": "9876543210"}, &customer)
	if err != nil {
		return "", "", err
	}
	if status != fasthttp.StatusCreated {
		return "", "", fmt.Errorf("create customer failed with status %d", status)
	}
	return auth.Token, customer.ID, nil
}

func sendRequest(client *fasthttp.Client, url, token string, payload map[string]any, stats *Stats) {
	start := time.Now()
	status, err := doJSON(client, fasthttp.MethodPost, url, token, payload, nil)
	stats.addResponseTime(time.Since(start).Seconds())

	switch {
	case err != nil:
		stats.errorCount.Add(1)
	case status == fasthttp.StatusCreated:
		stats.successCount.Add(1)
	case status == fasthttp.StatusTooManyRequests:
		stats.limitedCount.Add(1)
	default:
		stats.errorCount.Add(1)
	}
}

func worker(client *fasthttp.Client, url, token string, payload map[string]any, stats *Stats, jobs <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	for range jobs {
		sendRequest(client, url, token, payload, stats)
	}
}

func calculatePercentile(sorted []float64, percentile float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * percentile)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func main() {
	config := LoadTestConfig{
		BaseURL:           getEnvOrDefault("TARGET_URL", "http://localhost:8080/api"),
		RequestsPerSecond: getEnvIntOrDefault("REQUESTS_PER_SECOND", 500),
		DurationSeconds:   getEnvIntOrDefault("DURATION_SECONDS", 30),
		ConcurrentWorkers: getEnvIntOrDefault("CONCURRENT_WORKERS", 50),
		Email:             getEnvOrDefault("LOAD_EMAIL", "load@example.com"),
		Password:          getEnvOrDefault("LOAD_PASSWORD", "load-test-password"),
	}

	client := &fasthttp.Client{
		MaxConnsPerHost:     config.ConcurrentWorkers,
		MaxIdleConnDuration: 90 * time.Second,
	}

	token, customerID, err := prepare(client, config)
	if err != nil {
		fmt.Println("setup failed:", err)
		os.Exit(1)
	}

	url := config.BaseURL + "/transactions"
	payload := map[string]any{
		"customerId":    customerID,
		"type":          "received",
		"amount":        "10.00",
		"paymentMethod": "cash",
		"description":   "load test",
	}

	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s\n", url)
	fmt.Printf("Total requests: %d\n", config.RequestsPerSecond*config.DurationSeconds)
	fmt.Printf("Target RPS: %d\n", config.RequestsPerSecond)
	fmt.Printf("Concurrent workers: %d\n", config.ConcurrentWorkers)
	fmt.Printf("Duration: %d seconds\n", config.DurationSeconds)
	fmt.Println(strings.Repeat("-", 50))

	stats := &Stats{}
	jobs := make(chan struct{}, config.RequestsPerSecond)

	var wg sync.WaitGroup
	for i := 0; i < config.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, url, token, payload, stats, jobs, &wg)
	}

	startTime := time.Now()
	totalRequests := config.RequestsPerSecond * config.DurationSeconds
	requestsSent := 0

	for i := 0; i < config.DurationSeconds && requestsSent < totalRequests; i++ {
		batchStart := time.Now()

		for j := 0; j < config.RequestsPerSecond && requestsSent < totalRequests; j++ {
			jobs <- struct{}{}
			requestsSent++
		}

		success := stats.successCount.Load()
		errors := stats.errorCount.Load()
		limited := stats.limitedCount.Load()
		fmt.Printf("[%ds] Completed: %d | Success: %d | Limited: %d | Errors: %d\n",
			i+1, success+errors+limited, success, limited, errors)

		if elapsed := time.Since(batchStart); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	duration := time.Since(startTime).Seconds()

	success := stats.successCount.Load()
	errors := stats.errorCount.Load()
	limited := stats.limitedCount.Load()
	total := success + errors + limited

	times := stats.getResponseTimes()
	slices.Sort(times)
	var avgResponseTime float64
	for _, t := range times {
		avgResponseTime += t
	}
	if len(times) > 0 {
		avgResponseTime /= float64(len(times))
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", duration)
	fmt.Printf("Total requests: %d\n", total)
	fmt.Printf("Successful: %d\n", success)
	fmt.Printf("Rate limited: %d\n", limited)
	fmt.Printf("Failed: %d\n", errors)
	if total > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(success)/float64(total)*100)
	}
	fmt.Printf("\nActual RPS: %.2f\n", float64(total)/duration)
	if len(times) > 0 {
		fmt.Printf("\nResponse times:\n")
		fmt.Printf("  Average: %.2f ms\n", avgResponseTime*1000)
		fmt.Printf("  P50: %.2f ms\n", calculatePercentile(times, 0.50)*1000)
		fmt.Printf("  P95: %.2f ms\n", calculatePercentile(times, 0.95)*1000)
		fmt.Printf("  P99: %.2f ms\n", calculatePercentile(times, 0.99)*1000)
		fmt.Printf("  Min: %.2f ms\n", times[0]*1000)
		fmt.Printf("  Max: %.2f ms\n", times[len(times)-1]*1000)
	}
}
