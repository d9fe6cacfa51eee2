// Package vault reads and writes Aegis Authenticator backups and
// converts their entries to accounts.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	dbVersion    int = 3
	vaultVersion int = 1

	slotTypePassword int = 1
)

var (
	ErrNoMasterKey = errors.New("vault: no master key found")
	ErrEntryType   = errors.New("vault: unsupported entry type")
)

type Vault struct {
	Version int    `json:"version"`
	Header  Header `json:"header"`
	Db      Db     `json:"db"`
}

type VaultEncrypted struct {
	Version int    `json:"version"`
	Header  Header `json:"header"`
	Db      string `json:"db"`
}

// Header is empty (nil slots and params) for plaintext exports.
type Header struct {
	Slots  []Slot  `json:"slots"`
	Params *Params `json:"params"`
}

type Slot struct {
	Type      int    `json:"type"`
	Uuid      string `json:"uuid"`
	Key       string `json:"key"`
	KeyParams Params `json:"key_params"`
	N         int    `json:"n,omitempty"`
	R         int    `json:"r,omitempty"`
	P         int    `json:"p,omitempty"`
	Salt      string `json:"salt,omitempty"`
	Repaired  bool   `json:"repaired,omitempty"`
	IsBackup  bool   `json:"is_backup,omitempty"`
}

type Params struct {
	Nonce string `json:"nonce"`
	Tag   string `json:"tag"`
}

type Db struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
	Groups  []Group `json:"groups,omitempty"`
}

type Entry struct {
	Type     string   `json:"type"`
	Uuid     string   `json:"uuid"`
	Name     string   `json:"name"`
	Issuer   string   `json:"issuer"`
	Note     string   `json:"note,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	IconMime string   `json:"icon_mime,omitempty"`
	IconHash string   `json:"icon_hash,omitempty"`
	Favorite bool     `json:"favorite"`
	Info     Info     `json:"info"`
	Groups   []string `json:"groups,omitempty"`
}

type Info struct {
	Secret  string `json:"secret"`
	Algo    string `json:"algo"`
	Digits  int    `json:"digits"`
	Period  int    `json:"period,omitempty"`
	Counter uint64 `json:"counter,omitempty"`
	Pin     string `json:"pin,omitempty"`
}

type Group struct {
	Uuid string `json:"uuid"`
	Name string `json:"name"`
}

// Info keeps the secret out of formatted output.
func (i Info) String() string {
	var outputFormat string = "Info{ algo: %v, digits: %v, period: %v, counter: %v }"

	return fmt.Sprintf(outputFormat, i.Algo, i.Digits, i.Period, i.Counter)
}

// IsEncrypted reports whether the raw backup holds an encrypted db.
func IsEncrypted(data []byte) (bool, error) {
	var probe struct {
		Db json.RawMessage `json:"db"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return false, err
	}

	return len(probe.Db) > 0 && probe.Db[0] == '"', nil
}

// Read parses the plaintext backup at the path.
func Read(filePath string) (*Vault, error) {
	var v Vault

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data, &v)

	return &v, err
}

// ReadEncrypted parses the encrypted backup at the path.
func ReadEncrypted(filePath string) (*VaultEncrypted, error) {
	var v VaultEncrypted

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data, &v)

	return &v, err
}

// ReadAndDecrypt parses the encrypted backup at the path, decrypts
// its content and returns the plaintext vault.
func ReadAndDecrypt(filePath string, pwd string) (*Vault, error) {
	vaultDataEnc, err := ReadEncrypted(filePath)
	if err != nil {
		return nil, err
	}

	masterKey, err := vaultDataEnc.FindMasterKey(pwd)
	if err != nil {
		return nil, err
	}

	return vaultDataEnc.DecryptVault(masterKey)
}

// Open reads the backup at the path, decrypting it with pwd when it
// is encrypted.
func Open(filePath string, pwd string) (*Vault, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	encrypted, err := IsEncrypted(data)
	if err != nil {
		return nil, err
	}

	if !encrypted {
		return Read(filePath)
	}

	return ReadAndDecrypt(filePath, pwd)
}

// Write stores a backup, plaintext or encrypted, as JSON at the path.
func Write(filePath string, backup any) error {
	data, err := json.MarshalIndent(backup, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0o600)
}
