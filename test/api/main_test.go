//go:build e2e

package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/pkg/auth"
)

var (
	baseURL = "http://localhost:8080/api/v1"
	// tokens and staff ids per role, filled in by setupStaff
	tokens  = map[model.Role]string{}
	staffID = map[model.Role]string{}
)

type TestResponse struct {
	StatusCode int
	Status     string
	Message    string
	ErrorCode  string
	Guard      string
	Data       map[string]interface{}
	RawData    json.RawMessage
}

func (r TestResponse) IsSuccess() bool {
	return r.Status == "success"
}

func (r TestResponse) GetString(key string) string {
	if r.Data == nil {
		return ""
	}
	if v, ok := r.Data[key].(string); ok {
		return v
	}
	return ""
}

func checkAPIServer() error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health/live")
	if err != nil {
		return fmt.Errorf("API server not reachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API server not healthy: %s", resp.Status)
	}
	return nil
}

func TestMain(m *testing.M) {
	if url := os.Getenv("API_URL"); url != "" {
		baseURL = url + "/api/v1"
	}

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		if err := checkAPIServer(); err != nil {
			if i == maxRetries-1 {
				fmt.Printf("Error: %v\nMake sure the API server is running at %s\n", err, baseURL)
				os.Exit(1)
			}
			fmt.Printf("Waiting for API server (attempt %d/%d)...\n", i+1, maxRetries)
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}

	setupStaff()
	os.Exit(m.Run())
}

// setupStaff registers one staff member per role through the admin token
// in API_ADMIN_TOKEN and signs tokens for them with JWT_SECRET.
func setupStaff() {
	adminToken := os.Getenv("API_ADMIN_TOKEN")
	secret := os.Getenv("JWT_SECRET")
	if adminToken == "" || secret == "" {
		fmt.Println("API_ADMIN_TOKEN and JWT_SECRET must be set")
		os.Exit(1)
	}
	tokens[model.RoleAdmin] = adminToken

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "vaccine-clinic"
	}
	signer := auth.NewJWTService(auth.JWTConfig{Secret: []byte(secret), Issuer: issuer, Expiry: time.Hour})

	for _, role := range []model.Role{model.RoleFrontDesk, model.RoleDoctor, model.RoleNurse, model.RolePayment} {
		resp := makeRequest("POST", "/staff", map[string]interface{}{
			"name": uniqueName(string(role)),
			"role": role,
		}, adminToken)
		if !resp.IsSuccess() {
			fmt.Printf("Failed to create %s: %s\n", role, resp.Message)
			os.Exit(1)
		}
		id := resp.GetString("id")
		token, err := signer.GenerateAccessToken(model.Actor{StaffID: uuid.MustParse(id), Role: role})
		if err != nil {
			fmt.Printf("Failed to sign token for %s: %v\n", role, err)
			os.Exit(1)
		}
		staffID[role] = id
		tokens[role] = token
	}
}

func makeRequest(method, path string, body interface{}, token string) TestResponse {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return TestResponse{Status: "error", Message: err.Error()}
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return TestResponse{Status: "error", Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	response, err := client.Do(req)
	if err != nil {
		return TestResponse{Status: "error", Message: err.Error()}
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return TestResponse{Status: "error", Message: err.Error()}
	}

	var apiResp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code  string `json:"code"`
			Guard string `json:"guard"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return TestResponse{StatusCode: response.StatusCode, Status: "error", Message: string(respBody)}
	}

	result := TestResponse{
		StatusCode: response.StatusCode,
		Status:     apiResp.Status,
		Message:    apiResp.Message,
		RawData:    apiResp.Data,
	}
	if apiResp.Error != nil {
		result.ErrorCode = apiResp.Error.Code
		result.Guard = apiResp.Error.Guard
	}
	// list endpoints return arrays; Data stays nil for those
	_ = json.Unmarshal(apiResp.Data, &result.Data)
	return result
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}
