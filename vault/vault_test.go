package vault_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
	"github.com/tim-projects/otpkit/vault"
)

func testDb() vault.Db {
	return vault.Db{
		Version: 3,
		Groups:  []vault.Group{{Uuid: "g-1", Name: "Work"}},
		Entries: []vault.Entry{
			{
				Type:   "totp",
				Uuid:   "e-1",
				Name:   "alice@example.com",
				Issuer: "Example",
				Info:   vault.Info{Secret: "JBSWY3DPEHPK3PXP", Algo: "SHA1", Digits: 6, Period: 30},
				Groups: []string{"g-1"},
			},
			{
				Type:   "hotp",
				Uuid:   "e-2",
				Name:   "bob",
				Issuer: "PayPal",
				Info:   vault.Info{Secret: "JBSWY3DPEHPK3PXP", Algo: "SHA256", Digits: 8, Period: 30, Counter: 7},
			},
			{
				Type:   "steam",
				Uuid:   "e-3",
				Name:   "gamer",
				Issuer: "Steam",
				Info:   vault.Info{Secret: "CQKQQEQRAAR777X5", Algo: "SHA1", Digits: 5, Period: 30},
			},
			{
				Type: "motp",
				Uuid: "e-4",
				Name: "vpn",
				Info: vault.Info{Secret: "1234567890abcdef", Algo: "MD5", Digits: 6, Period: 10, Pin: "1234"},
			},
			{
				Type: "yandex",
				Uuid: "e-5",
				Name: "unsupported",
				Info: vault.Info{Secret: "JBSWY3DPEHPK3PXP", Algo: "SHA256", Digits: 8},
			},
		},
	}
}

func TestSealAndDecrypt(t *testing.T) {
	sealed, err := vault.Seal(testDb(), "hunter2")
	require.NoError(t, err)
	require.Len(t, sealed.Header.Slots, 1)

	path := filepath.Join(t.TempDir(), "aegis-backup-20240101-120000.json")
	require.NoError(t, vault.Write(path, sealed))

	plain, err := vault.ReadAndDecrypt(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testDb(), plain.Db)

	opened, err := vault.Open(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testDb(), opened.Db)
}

func TestFindMasterKey_WrongPassword(t *testing.T) {
	sealed, err := vault.Seal(testDb(), "hunter2")
	require.NoError(t, err)

	_, err = sealed.FindMasterKey("hunter3")
	assert.ErrorIs(t, err, vault.ErrNoMasterKey)
}

func TestOpen_Plaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aegis-export-plain.json")
	require.NoError(t, vault.Write(path, vault.Vault{Version: 1, Db: testDb()}))

	encrypted, err := vault.IsEncrypted([]byte(`{"version":1,"db":"abcd"}`))
	require.NoError(t, err)
	assert.True(t, encrypted)

	v, err := vault.Open(path, "")
	require.NoError(t, err)
	assert.Equal(t, testDb(), v.Db)
}

func TestDb_Accounts(t *testing.T) {
	accounts, errs := testDb().Accounts()

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], vault.ErrEntryType)
	require.Len(t, accounts, 4)

	assert.Equal(t, otp.TypeTOTP, accounts[0].Type)
	assert.Equal(t, category.Work, accounts[0].Category)
	assert.Equal(t, int64(30), accounts[0].Period)

	assert.Equal(t, otp.TypeHOTP, accounts[1].Type)
	assert.Equal(t, uint64(7), accounts[1].Counter)
	assert.Equal(t, otp.SHA256, accounts[1].Algorithm)
	assert.Zero(t, accounts[1].Period)
	assert.Equal(t, category.Finance, accounts[1].Category)

	assert.Equal(t, otp.TypeSteam, accounts[2].Type)
	assert.Equal(t, category.Gaming, accounts[2].Category)

	assert.Equal(t, otp.TypeMOTP, accounts[3].Type)
	assert.Equal(t, int64(30), accounts[3].Period)
	assert.Equal(t, "1234", accounts[3].PIN)
}

func TestNewDb_RoundTrip(t *testing.T) {
	accounts := []account.Account{
		{
			ID:        "not-a-uuid",
			Name:      "alice",
			Email:     "alice",
			Secret:    "JBSWY3DPEHPK3PXP",
			Type:      otp.TypeTOTP,
			Category:  category.Social,
			Algorithm: otp.SHA512,
			Digits:    8,
			Period:    60,
		},
		{
			Name:     "vpn",
			Email:    "vpn",
			Secret:   "1234567890abcdef",
			Type:     otp.TypeMOTP,
			Category: category.Other,
			Digits:   6,
			Period:   30,
			PIN:      "1234",
		},
	}

	db, err := vault.NewDb(accounts)
	require.NoError(t, err)
	require.Len(t, db.Groups, 1)
	assert.Equal(t, "Social", db.Groups[0].Name)
	assert.Equal(t, "MD5", db.Entries[1].Info.Algo)

	back, errs := db.Accounts()
	require.Empty(t, errs)
	require.Len(t, back, 2)
	assert.Equal(t, category.Social, back[0].Category)
	assert.Equal(t, otp.SHA512, back[0].Algorithm)
	assert.Equal(t, int64(60), back[0].Period)
	assert.Equal(t, "1234", back[1].PIN)

	_, err = vault.NewDb([]account.Account{{Type: otp.TypeEmailOTP, Secret: "123456"}})
	assert.ErrorIs(t, err, vault.ErrEntryType)
}
