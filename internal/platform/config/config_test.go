package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{"CBW_FIREBASE_PROJECT_ID": "cbw-dev"}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "cbw-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Events.PubSubProjectID != "cbw-dev" {
		t.Errorf("expected pubsub project to default, got %s", cfg.Events.PubSubProjectID)
	}
	if cfg.Orders.NumberPrefix != "CBW" || cfg.Orders.Currency != "AED" {
		t.Errorf("unexpected order defaults: %+v", cfg.Orders)
	}
	if cfg.Orders.DeliveryFee != 1500 || cfg.Orders.VATBasisPoints != 500 {
		t.Errorf("unexpected pricing defaults: %+v", cfg.Orders)
	}
	if cfg.Orders.MaxLineQuantity != 99 {
		t.Errorf("unexpected max quantity: %d", cfg.Orders.MaxLineQuantity)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Environment != "local" {
		t.Errorf("expected local environment, got %s", cfg.Environment)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"CBW_SERVER_PORT":           "9090",
		"CBW_SERVER_READ_TIMEOUT":   "20s",
		"CBW_FIREBASE_PROJECT_ID":   "cbw-prod",
		"CBW_FIRESTORE_PROJECT_ID":  "cbw-data",
		"CBW_ORDERS_NUMBER_PREFIX":  "cbx",
		"CBW_ORDERS_DELIVERY_FEE":   "2000",
		"CBW_ORDERS_VAT_BPS":        "750",
		"CBW_EVENTS_ORDER_TOPIC":    "orders",
		"CBW_AUTH_ADMIN_JWT_SECRET": "sm://admin-jwt",
	}

	var seen string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		seen = ref
		return "resolved-secret", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(resolver), WithRequiredSecrets("Auth.AdminJWTSecret"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if seen != "secret://admin-jwt" {
		t.Fatalf("expected normalised secret ref, got %q", seen)
	}
	if cfg.Auth.AdminJWTSecret != "resolved-secret" {
		t.Errorf("secret not resolved: %q", cfg.Auth.AdminJWTSecret)
	}
	if cfg.Server.Port != "9090" || cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("server overrides not applied: %+v", cfg.Server)
	}
	if cfg.Firestore.ProjectID != "cbw-data" || cfg.Events.PubSubProjectID != "cbw-data" {
		t.Errorf("unexpected projects: firestore=%s pubsub=%s", cfg.Firestore.ProjectID, cfg.Events.PubSubProjectID)
	}
	if cfg.Orders.NumberPrefix != "CBX" || cfg.Orders.DeliveryFee != 2000 || cfg.Orders.VATBasisPoints != 750 {
		t.Errorf("order overrides not applied: %+v", cfg.Orders)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local settings\nCBW_FIREBASE_PROJECT_ID=from-dotenv\nexport CBW_SERVER_PORT=\"7070\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path),
		WithEnvMap(map[string]string{"CBW_SERVER_PORT": "6060"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-dotenv" {
		t.Errorf("expected dotenv value, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("explicit map must win over dotenv, got %s", cfg.Server.Port)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(),
		WithEnvFile(filepath.Join(t.TempDir(), "absent.env")),
		WithEnvMap(map[string]string{"CBW_FIREBASE_PROJECT_ID": "p"}))
	if err != nil {
		t.Fatalf("expected missing dotenv to be ignored, got %v", err)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""),
		WithEnvMap(map[string]string{"CBW_ORDERS_VAT_BPS": "20000"}))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, f := range vErr.Fields() {
		fields[f] = true
	}
	for _, want := range []string{"Firebase.ProjectID", "Firestore.ProjectID", "Orders.VATBasisPoints"} {
		if !fields[want] {
			t.Errorf("expected %s in %v", want, vErr.Fields())
		}
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"CBW_FIREBASE_PROJECT_ID":   "p",
		"CBW_AUTH_ADMIN_JWT_SECRET": "secret://admin-jwt",
	}
	boom := errors.New("boom")
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(SecretResolverFunc(func(context.Context, string) (string, error) { return "", boom })))
	var sErr *SecretError
	if !errors.As(err, &sErr) || !errors.Is(err, boom) {
		t.Fatalf("expected SecretError wrapping boom, got %v", err)
	}
	if sErr.Ref != "secret://admin-jwt" {
		t.Errorf("unexpected ref %s", sErr.Ref)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""),
		WithEnvMap(map[string]string{"CBW_FIREBASE_PROJECT_ID": "p"}),
		WithRequiredSecrets("Auth.AdminJWTSecret", "Auth.AdminJWTSecret"))
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "Auth.AdminJWTSecret" {
		t.Fatalf("unexpected names %v", names)
	}
	if got := missing.Error(); got == "" || strings.Contains(got, "Auth.AdminJWTSecret") {
		t.Fatalf("expected redacted error message, got %q", got)
	}
}

func TestLookupUsesSamePrecedence(t *testing.T) {
	value, err := Lookup("CBW_SECRETS_PROJECT_ID", WithoutSystemEnv(), WithEnvFile(""),
		WithEnvMap(map[string]string{"CBW_SECRETS_PROJECT_ID": "vault"}))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if value != "vault" {
		t.Fatalf("expected vault, got %q", value)
	}
}
