package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/medride/dispatch/api"
	"github.com/medride/dispatch/config"
	"github.com/medride/dispatch/infra/logger"
)

var (
	serverURL string
	startLat  float64
	startLng  float64
	destLat   float64
	destLng   float64
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Inject a test ride request into a running server",
	RunE:  injectRequest,
}

func init() {
	requestCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	requestCmd.Flags().Float64Var(&startLat, "start-lat", 6.9271, "pickup latitude")
	requestCmd.Flags().Float64Var(&startLng, "start-lng", 79.8612, "pickup longitude")
	requestCmd.Flags().Float64Var(&destLat, "dest-lat", 6.9, "destination latitude")
	requestCmd.Flags().Float64Var(&destLng, "dest-lng", 79.9, "destination longitude")
	rootCmd.AddCommand(requestCmd)
}

func injectRequest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("request-command")

	token, err := api.NewAuthenticator(cfg.Auth.Secret).Sign("cli", api.RoleAdmin, time.Hour)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"requestUid": uuid.NewString(),
		"startLat":   startLat,
		"startLng":   startLng,
		"destLat":    destLat,
		"destLng":    destLng,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, serverURL+"/rides/request", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, out)
	}
	logg.Infof("dispatched: %s", out)
	return nil
}
