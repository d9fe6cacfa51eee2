package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// Scrypt cost used for new password slots, matching Aegis.
const (
	scryptN int = 1 << 15
	scryptR int = 8
	scryptP int = 1
)

// sealGCM encrypts data and returns the ciphertext and the tag separately.
func sealGCM(key []byte, data []byte) ([]byte, Params, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, Params{}, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, Params{}, err
	}

	var nonce []byte = make([]byte, aesgcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, Params{}, err
	}

	var sealed []byte = aesgcm.Seal(nil, nonce, data, nil)
	var split int = len(sealed) - aesgcm.Overhead()

	var params Params = Params{
		Nonce: hex.EncodeToString(nonce),
		Tag:   hex.EncodeToString(sealed[split:]),
	}

	return sealed[:split], params, nil
}

// Seal encrypts the db under a fresh master key, wrapped in a single
// password slot, and returns the encrypted backup.
func Seal(db Db, pwd string) (*VaultEncrypted, error) {
	var masterKey []byte = make([]byte, keyLen)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, err
	}

	var salt []byte = make([]byte, keyLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key, err := scrypt.Key([]byte(pwd), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, err
	}

	wrapped, keyParams, err := sealGCM(key, masterKey)
	if err != nil {
		return nil, err
	}

	if db.Version == 0 {
		db.Version = dbVersion
	}

	content, err := json.Marshal(db)
	if err != nil {
		return nil, err
	}

	ciphertext, params, err := sealGCM(masterKey, content)
	if err != nil {
		return nil, err
	}

	var slot Slot = Slot{
		Type:      slotTypePassword,
		Uuid:      uuid.NewString(),
		Key:       hex.EncodeToString(wrapped),
		KeyParams: keyParams,
		N:         scryptN,
		R:         scryptR,
		P:         scryptP,
		Salt:      hex.EncodeToString(salt),
	}

	return &VaultEncrypted{
		Version: vaultVersion,
		Header: Header{
			Slots:  []Slot{slot},
			Params: &params,
		},
		Db: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}
