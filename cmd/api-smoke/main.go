// api-smoke exercises a running coordinator end to end: register a
// device, push readings, poll and resolve commands, then fetch the
// dashboard snapshot. Intended for manual verification against a local
// stack.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func main() {
	base := getEnv("DESKWELL_URL", "http://localhost:8080")
	deviceID := getEnv("SMOKE_DEVICE_ID", "smoke-esp32-01")

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	fmt.Printf("\n=== deskwell API smoke against %s ===\n\n", base)

	post(client, "/api/v1/device/register", map[string]any{
		"device_id":             deviceID,
		"kind":                  "ambient",
		"sensor_capabilities":   []string{"co2", "noise", "temperature"},
		"actuator_capabilities": []string{"ventilation", "status_led"},
	})

	// A critical CO2 reading should raise an alert and enqueue commands.
	post(client, "/api/v1/device/reading", map[string]any{
		"device_id":   deviceID,
		"sensor_kind": "co2",
		"value":       1600,
		"unit":        "ppm",
	})

	post(client, "/api/v1/device/fatigue", map[string]any{
		"device_id":    deviceID,
		"fatigue_kind": "visual",
		"level":        "high",
	})

	commands := get(client, "/api/v1/device/commands?device_id="+deviceID)
	var envelope struct {
		Result []struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(commands, &envelope); err != nil {
		log.Fatalf("failed to decode commands: %v", err)
	}
	for _, cmd := range envelope.Result {
		post(client, "/api/v1/device/command-resolution", map[string]any{
			"command_id": cmd.ID,
			"device_id":  deviceID,
			"outcome":    "confirmed",
		})
	}

	get(client, "/api/v1/dashboard/snapshot")
	get(client, "/api/v1/dashboard/alerts")

	fmt.Println("\n=== done ===")
}

func post(client *resty.Client, path string, body any) {
	resp, err := client.R().SetBody(body).Post(path)
	if err != nil {
		log.Fatalf("POST %s failed: %v", path, err)
	}
	fmt.Printf("POST %s -> %d\n%s\n\n", path, resp.StatusCode(), resp.String())
}

func get(client *resty.Client, path string) []byte {
	resp, err := client.R().Get(path)
	if err != nil {
		log.Fatalf("GET %s failed: %v", path, err)
	}
	fmt.Printf("GET %s -> %d\n%s\n\n", path, resp.StatusCode(), resp.String())
	return resp.Body()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
