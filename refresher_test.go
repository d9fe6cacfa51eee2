package otpkit_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit"
	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/otp"
)

func TestRefresher_RecomputesOnlyAtBoundaries(t *testing.T) {
	r := otpkit.NewRefresher()
	a := account.Account{ID: "a", Type: otp.TypeTOTP, Secret: "JBSWY3DPEHPK3PXP", Algorithm: otp.SHA1, Digits: 6, Period: 30}

	// 1700000000 is 20 seconds into its window
	start := time.Unix(1700000000, 0)

	first, changed, err := r.Code(a, start)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(10), first.TimeRemaining)

	recomputes := 0
	for s := 1; s <= 90; s++ {
		now := start.Add(time.Duration(s) * time.Second)

		code, changed, err := r.Code(a, now)
		require.NoError(t, err)

		_, remaining := otp.Window(now.Unix(), 30)
		assert.Equal(t, remaining, code.TimeRemaining)
		assert.Equal(t, changed, remaining == 30, "second %d", s)

		direct, err := a.Code(now)
		require.NoError(t, err)
		assert.Equal(t, direct.Code, code.Code)

		if changed {
			recomputes++
		}
	}

	assert.Equal(t, 3, recomputes)
}

func TestRefresher_ForgetAndUnsupported(t *testing.T) {
	r := otpkit.NewRefresher()
	a := account.Account{ID: "a", Type: otp.TypeSteam, Secret: "CQKQQEQRAAR777X5"}
	now := time.Unix(1700000000, 0)

	_, changed, err := r.Code(a, now)
	require.NoError(t, err)
	assert.True(t, changed)

	_, changed, err = r.Code(a, now)
	require.NoError(t, err)
	assert.False(t, changed)

	r.Forget("a")
	_, changed, err = r.Code(a, now)
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = r.Code(account.Account{ID: "h", Type: otp.TypeHOTP, Secret: "JBSWY3DPEHPK3PXP"}, now)
	assert.ErrorIs(t, err, otp.ErrUnsupportedType)
}

func TestFindBackupPath(t *testing.T) {
	dir := t.TempDir()

	_, err := otpkit.FindBackupPath(dir)
	assert.ErrorIs(t, err, otpkit.ErrNoBackup)

	older := filepath.Join(dir, "aegis-backup-20240101-120000.json")
	newer := filepath.Join(dir, "aegis-export-20240102.json")
	ignored := filepath.Join(dir, "notes.json")

	for i, path := range []string{older, newer, ignored} {
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

		mtime := time.Unix(1700000000+int64(i)*60, 0)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	path, err := otpkit.FindBackupPath(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, path)
}

func TestTimeToNext(t *testing.T) {
	assert.Equal(t, 10*time.Second, otpkit.TimeToNext(time.Unix(1700000000, 0), 30))
	assert.Equal(t, 9500*time.Millisecond, otpkit.TimeToNext(time.Unix(1700000000, 500_000_000), 30))
	assert.Equal(t, 30*time.Second, otpkit.TimeToNext(time.Unix(1700000010, 0), 0))
}

func TestTimeToNext_LandsOnRecompute(t *testing.T) {
	r := otpkit.NewRefresher()
	a := account.Account{ID: "a", Type: otp.TypeTOTP, Secret: "JBSWY3DPEHPK3PXP", Algorithm: otp.SHA1, Digits: 6, Period: 30}

	start := time.Unix(1700000000, 250_000_000)
	_, _, err := r.Code(a, start)
	require.NoError(t, err)

	wait := otpkit.TimeToNext(start, a.Period)

	_, changed, err := r.Code(a, start.Add(wait-time.Millisecond))
	require.NoError(t, err)
	assert.False(t, changed)

	code, changed, err := r.Code(a, start.Add(wait))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, int64(30), code.TimeRemaining)
}
