package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPCollateralVault 抵押金库客户端
// 提取保证金前询问金库：提取后 QEURO 发行是否仍足额抵押
type HTTPCollateralVault struct {
	endpoint string
	client   *http.Client
}

// NewHTTPCollateralVault 创建金库客户端
func NewHTTPCollateralVault(endpoint string, timeout time.Duration) *HTTPCollateralVault {
	return &HTTPCollateralVault{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type vaultCheckRequest struct {
	MarginRemoved string `json:"margin_removed"`
}

type vaultCheckResponse struct {
	Collateralized bool `json:"collateralized"`
}

// CheckCollateralizationAfter 校验提取 marginRemoved 后金库是否仍足额抵押
func (v *HTTPCollateralVault) CheckCollateralizationAfter(ctx context.Context, marginRemoved decimal.Decimal) (bool, error) {
	payload, err := json.Marshal(vaultCheckRequest{MarginRemoved: marginRemoved.String()})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("vault request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("vault returned status %d", resp.StatusCode)
	}

	var body vaultCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode vault response: %w", err)
	}
	return body.Collateralized, nil
}
