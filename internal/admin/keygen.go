package admin

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/tasktracker/internal/filex"
	"github.com/dmitrijs2005/tasktracker/internal/server/keys"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
	minKeyBits     = 2048
)

// keygen writes a fresh RSA pair as private.pem (PKCS#8) and public.pem
// (PKIX) into -out.
func (a *App) keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(a.out)
	dir := fs.String("out", "keys", "output directory")
	bits := fs.Int("bits", minKeyBits, "RSA modulus size")
	force := fs.Bool("force", false, "overwrite existing key files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *bits < minKeyBits {
		return fmt.Errorf("key size %d is below the %d bit minimum", *bits, minKeyBits)
	}

	privPath := filepath.Join(*dir, privateKeyFile)
	pubPath := filepath.Join(*dir, publicKeyFile)
	if !*force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists, use -force to overwrite", p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}

	priv, pub, err := keys.GeneratePEM(*bits)
	if err != nil {
		return err
	}

	if _, err := filex.EnsureDir(*dir, 0o700); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(privPath, priv, 0o600); err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(pubPath, pub, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Wrote %s and %s\n", privPath, pubPath)
	return nil
}
