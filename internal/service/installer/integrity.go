package installer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/release"
)

// signatureSuffix is appended to an asset name to find its detached signature.
const signatureSuffix = ".asc"

var (
	errChecksumNotFound = errors.New("checksum not found")
	errBadChecksum      = errors.New("malformed checksum")
	errEmptyKeyring     = errors.New("keyring is empty")
	errBadSignature     = errors.New("signature verification failed")
)

// expectedChecksum returns the sha256 digest of assetName listed in the configured
// checksums asset, or nil when no checksums asset is configured.
func (r *runner) expectedChecksum(ctx context.Context, rel *release.Release, assetName string) ([]byte, error) {
	if r.cfg.ChecksumsAsset == "" {
		return nil, nil
	}

	sums, err := rel.Asset(r.cfg.ChecksumsAsset)
	if err != nil {
		return nil, fmt.Errorf("locate checksums: %w", err)
	}

	data, err := r.client.Fetch(ctx, sums.URL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sums.Name, err)
	}

	sum, err := findChecksum(data, assetName)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Expecting checksum", "asset", assetName, "sha256", hex.EncodeToString(sum))

	return sum, nil
}

// findChecksum looks up filename in "<hex>  <filename>" lines.
func findChecksum(data []byte, filename string) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// sha256sum marks binary mode with a leading asterisk.
		name := strings.TrimPrefix(fields[1], "*")
		if name != filename && path.Base(name) != filename {
			continue
		}

		sum, err := hex.DecodeString(fields[0])
		if err != nil || len(sum) != sha256.Size {
			return nil, fmt.Errorf("%w for %s: %q", errBadChecksum, filename, fields[0])
		}

		return sum, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan checksums: %w", err)
	}

	return nil, fmt.Errorf("%w for %s", errChecksumNotFound, filename)
}

// verifySignature checks the downloaded file against "<asset>.asc" from the release
// using the configured armored public key.
func (r *runner) verifySignature(ctx context.Context, rel *release.Release, assetName, filePath string) error {
	keyring, err := loadKeyring(r.cfg.PublicKeyFile)
	if err != nil {
		return err
	}

	sigAsset, err := rel.Asset(assetName + signatureSuffix)
	if err != nil {
		return fmt.Errorf("locate signature: %w", err)
	}

	sig, err := r.client.Fetch(ctx, sigAsset.URL)
	if err != nil {
		return fmt.Errorf("download %s: %w", sigAsset.Name, err)
	}

	signed, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("open downloaded file: %w", err)
	}

	defer func() {
		_ = signed.Close()
	}()

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, bytes.NewReader(sig), nil)
	if err != nil {
		return fmt.Errorf("%w for %s: %w", errBadSignature, assetName, err)
	}

	if signer != nil && signer.PrimaryKey != nil {
		logger.InfoKV(ctx, "Signature verified", "asset", assetName, "key", signer.PrimaryKey.KeyIdString())
	}

	return nil
}

func loadKeyring(keyPath string) (openpgp.EntityList, error) {
	f, err := os.Open(filepath.Clean(keyPath))
	if err != nil {
		return nil, fmt.Errorf("open public key: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	if len(keyring) == 0 {
		return nil, errEmptyKeyring
	}

	return keyring, nil
}
