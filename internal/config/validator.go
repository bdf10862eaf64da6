package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// RegisterCustomValidators registers respawn-gate-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// account_name: validates on-chain names (contracts, actions)
	if err := v.RegisterValidation("account_name", validateAccountName); err != nil {
		return fmt.Errorf("failed to register account_name validator: %w", err)
	}
	// asset: validates canonical asset amounts like "1.0000 XPR"
	if err := v.RegisterValidation("asset", validateAsset); err != nil {
		return fmt.Errorf("failed to register asset validator: %w", err)
	}
	// journal_output: validates "off", "stdout" or "file://<absolute-dir>"
	if err := v.RegisterValidation("journal_output", validateJournalOutput); err != nil {
		return fmt.Errorf("failed to register journal_output validator: %w", err)
	}
	return nil
}

// validateAccountName validates an on-chain account name field.
func validateAccountName(fl validator.FieldLevel) bool {
	return chain.AccountName(fl.Field().String()).Valid()
}

// validateAsset validates a canonical "<decimal-amount> <SYMBOL>" field.
func validateAsset(fl validator.FieldLevel) bool {
	_, err := chain.ParseAsset(fl.Field().String())
	return err == nil
}

// validateJournalOutput validates the journal output field.
// Valid values: "off", "stdout" or "file://<absolute-dir>"
func validateJournalOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()

	// "off" and "stdout" are always valid
	if output == "off" || output == "stdout" {
		return true
	}

	// "file://<dir>" requires an absolute path
	if strings.HasPrefix(output, "file://") {
		dir := strings.TrimPrefix(output, "file://")
		return dir != "" && filepath.IsAbs(dir)
	}

	return false
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	// Create validator with required struct enabled
	v := validator.New(validator.WithRequiredStructEnabled())

	// Register custom validators
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	// Run struct validation (tags)
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Cross-field validation: wallet backend requirements
	if err := c.validateWalletBackend(); err != nil {
		return err
	}

	return nil
}

// validateWalletBackend ensures the selected signing backend has the
// settings it needs: walletd needs an address, keystore needs a path.
func (c *Config) validateWalletBackend() error {
	switch c.Wallet.Backend {
	case "walletd":
		if c.Wallet.WalletdAddr == "" {
			return errors.New("wallet: walletd_addr is required when backend is walletd")
		}
	case "keystore":
		if c.Wallet.KeystorePath == "" {
			// Only reachable when the home directory cannot be resolved.
			return errors.New("wallet: keystore_path is required when backend is keystore")
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			msg := formatSingleValidationError(e)
			messages = append(messages, msg)
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "account_name":
		return fmt.Sprintf("%s must be a valid account name (1-12 chars: a-z, 1-5, '.')", field)
	case "asset":
		return fmt.Sprintf("%s must be an asset amount like \"1.0000 XPR\"", field)
	case "journal_output":
		return fmt.Sprintf("%s must be 'off', 'stdout' or 'file://<absolute-dir>'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
