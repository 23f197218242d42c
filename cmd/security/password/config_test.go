package password

import (
	"os"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	// Ensure env is clean for this test.
	clearEnv := []string{
		"NEWSLETTER_PASSWORD_MIN_LEN",
		"NEWSLETTER_PASSWORD_MAX_LEN",
		"NEWSLETTER_ARGON2_MEMORY_KIB",
		"NEWSLETTER_ARGON2_ITERATIONS",
		"NEWSLETTER_ARGON2_PARALLELISM",
		"NEWSLETTER_ARGON2_SALT_LEN",
		"NEWSLETTER_ARGON2_KEY_LEN",
	}
	for _, k := range clearEnv {
		_ = os.Unsetenv(k)
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	def := DefaultConfig()
	if cfg.Policy.MinLength != def.Policy.MinLength {
		t.Fatalf("min length mismatch")
	}
	if cfg.Params.MemoryKiB != def.Params.MemoryKiB {
		t.Fatalf("memory mismatch")
	}
}

func TestFromEnv_Override(t *testing.T) {
	t.Setenv("NEWSLETTER_PASSWORD_MIN_LEN", "10")
	t.Setenv("NEWSLETTER_PASSWORD_MAX_LEN", "200")
	t.Setenv("NEWSLETTER_ARGON2_MEMORY_KIB", "32768")
	t.Setenv("NEWSLETTER_ARGON2_ITERATIONS", "4")
	t.Setenv("NEWSLETTER_ARGON2_PARALLELISM", "2")
	t.Setenv("NEWSLETTER_ARGON2_SALT_LEN", "24")
	t.Setenv("NEWSLETTER_ARGON2_KEY_LEN", "32")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv error: %v", err)
	}

	if cfg.Policy.MinLength != 10 || cfg.Policy.MaxLength != 200 {
		t.Fatalf("policy override failed: %+v", cfg.Policy)
	}
	if cfg.Params.MemoryKiB != 32768 || cfg.Params.Iterations != 4 || cfg.Params.Parallelism != 2 {
		t.Fatalf("argon2 override failed: %+v", cfg.Params)
	}
	if cfg.Params.SaltLength != 24 || cfg.Params.KeyLength != 32 {
		t.Fatalf("len override failed: %+v", cfg.Params)
	}
}

func TestFromEnv_InvalidMinMax(t *testing.T) {
	t.Setenv("NEWSLETTER_PASSWORD_MIN_LEN", "20")
	t.Setenv("NEWSLETTER_PASSWORD_MAX_LEN", "10")

	_, err := FromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv_OutOfRange(t *testing.T) {
	cases := map[string]string{
		"NEWSLETTER_ARGON2_MEMORY_KIB":  "1024",
		"NEWSLETTER_ARGON2_ITERATIONS":  "0",
		"NEWSLETTER_ARGON2_SALT_LEN":    "4",
		"NEWSLETTER_ARGON2_PARALLELISM": "not-a-number",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", k, v)
			}
		})
	}
}
