package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

var backendURL = envOr("BACKEND_URL", "http://localhost:8080")

var client = &http.Client{Timeout: 30 * time.Second}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testHealth() error {
	fmt.Println("\n[TEST] Testing /api/health...")
	resp, err := client.Get(backendURL + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	fmt.Printf("✓ Health check: %s\n", strings.TrimSpace(string(body)))
	return nil
}

func testAssessment() error {
	fmt.Println("\n[TEST] Testing /api/assessment...")

	data := map[string]string{
		"FunctionalAssessment": "4.5",
		"ADL":                  "6",
		"MemoryComplaints":     "1",
		"MMSE":                 "21",
		"BehavioralProblems":   "0",
	}
	jsonData, _ := json.Marshal(data)

	resp, err := client.Post(backendURL+"/api/assessment", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("assessment request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assessment failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	fmt.Printf("✓ Assessment successful!\n")
	fmt.Printf("  - Classification: %v\n", result["classification"])
	fmt.Printf("  - Confidence: %v%%\n", result["confidence"])
	fmt.Printf("  - Severity: %v\n", result["severity"])
	return nil
}

func testUpload(scan []byte) error {
	fmt.Println("\n[TEST] Testing /api/upload...")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "smoke-scan.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(scan); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := client.Post(backendURL+"/api/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload failed: status %d, body: %s", resp.StatusCode, string(body))
	}
	fmt.Printf("✓ Upload accepted: %s\n", strings.TrimSpace(string(body)))
	return nil
}

func testMetrics() error {
	fmt.Println("\n[TEST] Testing /api/metrics...")
	resp, err := client.Get(backendURL + "/api/metrics")
	if err != nil {
		return fmt.Errorf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	var metrics map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return fmt.Errorf("failed to parse metrics: %v", err)
	}
	fmt.Printf("✓ Metrics: submissions=%v errors=%v uploads=%v\n",
		metrics["total_submissions"], metrics["total_errors"], metrics["total_uploads"])
	return nil
}

// generateTestImage draws a small grayscale gradient standing in for a scan.
func generateTestImage() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 2)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func main() {
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("ALZHEIMER ASSESSMENT - Server Smoke Test")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("\n[INFO] Target:", backendURL)

	imageData, err := generateTestImage()
	if err != nil {
		log.Fatalf("Failed to generate test image: %v", err)
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Health Check", testHealth},
		{"Assessment", testAssessment},
		{"Upload", func() error { return testUpload(imageData) }},
		{"Metrics", testMetrics},
	}

	for _, test := range tests {
		if err := test.fn(); err != nil {
			log.Printf("❌ %s failed: %v", test.name, err)
			os.Exit(1)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println("=" + strings.Repeat("=", 60))
}
