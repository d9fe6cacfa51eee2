package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const keyLen int = 32

// openGCM decrypts AES-GCM data whose tag is stored apart from the ciphertext.
func openGCM(key []byte, params Params, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce, err := hex.DecodeString(params.Nonce)
	if err != nil {
		return nil, err
	}

	tag, err := hex.DecodeString(params.Tag)
	if err != nil {
		return nil, err
	}

	var sealed []byte = append(append([]byte{}, data...), tag...)

	return aesgcm.Open(nil, nonce, sealed, nil)
}

// FindMasterKey uses the password to decrypt the master key
// from the vault and returns the master key's bytes.
func (vaultData *VaultEncrypted) FindMasterKey(pwd string) ([]byte, error) {
	for _, slot := range vaultData.Header.Slots {
		// Ignore slots that aren't using the password type
		if slot.Type != slotTypePassword {
			continue
		}

		salt, err := hex.DecodeString(slot.Salt)
		if err != nil {
			return nil, err
		}

		// Create a key using the slot values and provided password
		key, err := scrypt.Key([]byte(pwd), salt, slot.N, slot.R, slot.P, keyLen)
		if err != nil {
			return nil, err
		}

		slotKey, err := hex.DecodeString(slot.Key)
		if err != nil {
			return nil, err
		}

		// A wrong password fails authentication; try the next slot
		masterKey, err := openGCM(key, slot.KeyParams, slotKey)
		if err == nil && len(masterKey) > 0 {
			return masterKey, nil
		}
	}

	return nil, ErrNoMasterKey
}

// DecryptContents uses the master key to decrypt the vault's contents
// and returns the content's bytes.
func (vaultData *VaultEncrypted) DecryptContents(masterKey []byte) ([]byte, error) {
	if vaultData.Header.Params == nil {
		return nil, fmt.Errorf("vault: missing content params")
	}

	dbData, err := base64.StdEncoding.DecodeString(vaultData.Db)
	if err != nil {
		return nil, err
	}

	content, err := openGCM(masterKey, *vaultData.Header.Params, dbData)
	if err != nil {
		return nil, fmt.Errorf("vault: decrypt contents: %w", err)
	}

	return content, nil
}

// DecryptVault decrypts the vault's contents
// and returns a plaintext version of the vault.
func (vaultData *VaultEncrypted) DecryptVault(masterKey []byte) (*Vault, error) {
	content, err := vaultData.DecryptContents(masterKey)
	if err != nil {
		return nil, err
	}

	var db Db

	err = json.Unmarshal(content, &db)
	if err != nil {
		return nil, err
	}

	return &Vault{
		Version: vaultData.Version,
		Header:  vaultData.Header,
		Db:      db,
	}, nil
}
