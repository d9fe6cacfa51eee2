package vault

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
)

var entryTypes = map[string]otp.Type{
	"totp":  otp.TypeTOTP,
	"hotp":  otp.TypeHOTP,
	"steam": otp.TypeSteam,
	"motp":  otp.TypeMOTP,
}

// Account converts the entry into an account. Group names that match a
// category are used as the category; otherwise it is classified.
func (e Entry) Account(groups map[string]string) (account.Account, error) {
	t, ok := entryTypes[strings.ToLower(e.Type)]
	if !ok {
		return account.Account{}, fmt.Errorf("%w %q", ErrEntryType, e.Type)
	}

	// mOTP entries carry MD5, which only the mOTP digest uses
	var algo otp.Algorithm = otp.SHA1
	if t != otp.TypeMOTP {
		var err error

		algo, err = otp.ParseAlgorithm(strings.ToUpper(e.Info.Algo))
		if err != nil {
			return account.Account{}, err
		}
	}

	var a account.Account = account.Account{
		Name:      e.Name,
		Email:     e.Name,
		Issuer:    e.Issuer,
		Secret:    e.Info.Secret,
		Type:      t,
		Algorithm: algo,
		Digits:    e.Info.Digits,
		Period:    int64(e.Info.Period),
		Counter:   e.Info.Counter,
		PIN:       e.Info.Pin,
	}

	if a.Name == "" {
		a.Name = e.Issuer
	}

	a.Category = category.Classify(a.Name + " " + a.Issuer)

	for _, id := range e.Groups {
		if c := category.Category(groups[id]); c.Valid() && c != category.All {
			a.Category = c
			break
		}
	}

	// Aegis keeps a period on every entry; only TOTP uses it
	if t != otp.TypeTOTP {
		a.Period = 0
	}

	if t == otp.TypeSteam || t == otp.TypeMOTP {
		a.Period = otp.DefaultPeriod
	}

	return a, a.Validate()
}

// Accounts converts every entry in the db. Entries that fail are
// skipped and their errors returned alongside the converted accounts.
func (d Db) Accounts() ([]account.Account, []error) {
	var groups map[string]string = make(map[string]string, len(d.Groups))
	for _, g := range d.Groups {
		groups[g.Uuid] = g.Name
	}

	var accounts []account.Account
	var errs []error

	for _, entry := range d.Entries {
		a, err := entry.Account(groups)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", entry.Uuid, err))
			continue
		}

		accounts = append(accounts, a)
	}

	return accounts, errs
}

// EntryFromAccount converts an account into a backup entry.
func EntryFromAccount(a account.Account) (Entry, error) {
	var entryType string

	for name, t := range entryTypes {
		if t == a.Type {
			entryType = name
		}
	}

	if entryType == "" {
		return Entry{}, fmt.Errorf("%w %q", ErrEntryType, a.Type)
	}

	var id string = a.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	var algo string = string(a.Algorithm)

	switch {
	case a.Type == otp.TypeMOTP:
		algo = "MD5"
	case algo == "":
		algo = string(otp.SHA1)
	}

	return Entry{
		Type:   entryType,
		Uuid:   id,
		Name:   a.Name,
		Issuer: a.Issuer,
		Info: Info{
			Secret:  a.Secret,
			Algo:    algo,
			Digits:  a.Digits,
			Period:  int(a.Period),
			Counter: a.Counter,
			Pin:     a.PIN,
		},
	}, nil
}

// NewDb builds a db from the accounts, grouping them by category.
func NewDb(accounts []account.Account) (Db, error) {
	var db Db = Db{Version: dbVersion}
	var groupIDs map[category.Category]string = make(map[category.Category]string)

	for _, a := range accounts {
		entry, err := EntryFromAccount(a)
		if err != nil {
			return Db{}, err
		}

		if a.Category != "" && a.Category != category.Other {
			id, ok := groupIDs[a.Category]
			if !ok {
				id = uuid.NewString()
				groupIDs[a.Category] = id
				db.Groups = append(db.Groups, Group{Uuid: id, Name: string(a.Category)})
			}

			entry.Groups = []string{id}
		}

		db.Entries = append(db.Entries, entry)
	}

	return db, nil
}
