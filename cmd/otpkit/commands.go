package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tim-projects/otpkit"
	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/addflow"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
	"github.com/tim-projects/otpkit/otpauth"
	"github.com/tim-projects/otpkit/vault"
)

var uriFlag = &cli.StringSliceFlag{
	Name:    "uri",
	Aliases: []string{"u"},
	Usage:   "otpauth URI, may be repeated",
}

var vaultFlag = &cli.StringFlag{
	Name:  "vault",
	Usage: "Aegis backup file, or a directory holding backups",
}

var passwordFlag = &cli.StringFlag{
	Name:    "password",
	Aliases: []string{"p"},
	Usage:   "vault password, prompted for when omitted",
	EnvVars: []string{"OTPKIT_PASSWORD"},
}

// vaultPassword returns the --password flag, prompting on a terminal
// when the vault at path is encrypted and no password was given.
func vaultPassword(c *cli.Context, path string) (string, error) {
	if c.IsSet("password") {
		return c.String("password"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	encrypted, err := vault.IsEncrypted(data)
	if err != nil || !encrypted {
		return "", err
	}

	var fd int = int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("vault is encrypted and no password was given")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pwd, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	return string(pwd), nil
}

// typeFlag matches a --type value against the known types ignoring case.
func typeFlag(v string) otp.Type {
	for _, t := range []otp.Type{otp.TypeTOTP, otp.TypeHOTP, otp.TypeMOTP, otp.TypeSteam} {
		if strings.EqualFold(v, string(t)) {
			return t
		}
	}

	return otp.Type(v)
}

func resolveVault(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	if info.IsDir() {
		return otpkit.FindBackupPath(path)
	}

	return path, nil
}

// load stores the accounts named by --uri and --vault.
func (e *env) load(c *cli.Context) error {
	for _, uri := range c.StringSlice("uri") {
		if _, err := e.keeper.AddFromURI(c.Context, uri); err != nil {
			return err
		}
	}

	if c.String("vault") == "" {
		return nil
	}

	path, err := resolveVault(c.String("vault"))
	if err != nil {
		return err
	}

	pwd, err := vaultPassword(c, path)
	if err != nil {
		return err
	}

	saved, err := e.keeper.ImportVault(c.Context, path, pwd)
	if err != nil {
		if len(saved) == 0 {
			return err
		}

		e.logger.Warn("some vault entries were skipped", zap.Error(err))
	}

	return nil
}

func (e *env) display(code string) string {
	if e.cfg.Settings.ShowCodes {
		return code
	}

	return strings.Repeat("*", len(code))
}

// sorted lists stored accounts by issuer, then name.
func (e *env) sorted(c *cli.Context) ([]account.Account, error) {
	accounts, err := e.store.List(c.Context)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Issuer != accounts[j].Issuer {
			return accounts[i].Issuer < accounts[j].Issuer
		}
		return accounts[i].Name < accounts[j].Name
	})

	return accounts, nil
}

func codeCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "code",
		Usage: "print the current code of each account",
		Flags: []cli.Flag{uriFlag, vaultFlag, passwordFlag},
		Action: func(c *cli.Context) error {
			if err := e.load(c); err != nil {
				return err
			}

			accounts, err := e.sorted(c)
			if err != nil {
				return err
			}

			var w *tabwriter.Writer = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			for _, a := range accounts {
				code, err := e.keeper.Code(c.Context, a.ID)
				if err != nil {
					e.logger.Warn("code generation failed", zap.String("name", a.Name), zap.Error(err))
					continue
				}

				if code.Period == 0 && code.TimeRemaining == 0 {
					fmt.Fprintf(w, "%s\t%s\t%s\t\n", a.Issuer, a.Name, e.display(code.Code))
					continue
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%ds\n", a.Issuer, a.Name, e.display(code.Code), code.TimeRemaining)
			}

			return w.Flush()
		},
	}
}

func watchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "print time-based codes as they change, until interrupted",
		Flags: []cli.Flag{uriFlag, vaultFlag, passwordFlag},
		Action: func(c *cli.Context) error {
			if err := e.load(c); err != nil {
				return err
			}

			accounts, err := e.sorted(c)
			if err != nil {
				return err
			}

			var refresher *otpkit.Refresher = otpkit.NewRefresher()

			for {
				var now time.Time = time.Now()
				var wait time.Duration = time.Duration(otp.DefaultPeriod) * time.Second

				for _, a := range accounts {
					if a.Type == otp.TypeHOTP {
						continue
					}

					code, changed, err := refresher.Code(a, now)
					if err != nil {
						e.logger.Warn("code generation failed", zap.String("name", a.Name), zap.Error(err))
						refresher.Forget(a.ID)
						continue
					}

					if changed {
						fmt.Printf("%s %s\t%s\t%ds\n", now.Format(time.TimeOnly), a.Name, e.display(code.Code), code.TimeRemaining)
					}

					// Sleep until the nearest window boundary
					if code.Period > 0 {
						if d := otpkit.TimeToNext(now, code.Period); d < wait {
							wait = d
						}
					}
				}

				select {
				case <-c.Context.Done():
					return nil
				case <-time.After(wait):
				}
			}
		},
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "decode an otpauth URI and print it as JSON",
		ArgsUsage: "URI",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("parse takes exactly one URI", 2)
			}

			d, err := otpauth.Parse(c.Args().First())
			if err != nil {
				return err
			}

			var enc *json.Encoder = json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(struct {
				*otpauth.Descriptor
				Category category.Category `json:"category"`
			}{d, category.Classify(d.Name + " " + d.Issuer)})
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "print the category inferred from a service or account name",
		ArgsUsage: "NAME...",
		Action: func(c *cli.Context) error {
			fmt.Println(category.Classify(strings.Join(c.Args().Slice(), " ")))
			return nil
		},
	}
}

func addCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "validate a manually entered account and print its first code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "issuer"},
			&cli.StringFlag{Name: "secret", Required: true},
			&cli.StringFlag{Name: "type", Value: string(otp.TypeTOTP)},
			&cli.StringFlag{Name: "category"},
			&cli.StringFlag{Name: "algorithm", Value: string(otp.SHA1)},
			&cli.StringFlag{Name: "digits"},
			&cli.StringFlag{Name: "period"},
			&cli.StringFlag{Name: "counter"},
			&cli.StringFlag{Name: "pin"},
		},
		Action: func(c *cli.Context) error {
			var form account.Form = e.keeper.NewForm()

			form.Name = c.String("name")
			form.Email = c.String("email")
			form.Issuer = c.String("issuer")
			form.Secret = c.String("secret")
			form.Type = typeFlag(c.String("type"))
			form.Algorithm = otp.Algorithm(strings.ToUpper(c.String("algorithm")))

			if c.IsSet("category") {
				form.Category = category.Category(c.String("category"))
			} else {
				form.Category = category.Classify(form.Name + " " + form.Issuer)
			}

			for flag, field := range map[string]*string{
				"digits":  &form.Digits,
				"period":  &form.Period,
				"counter": &form.Counter,
				"pin":     &form.PIN,
			} {
				if c.IsSet(flag) {
					*field = c.String(flag)
				}
			}

			a, err := e.keeper.AddManual(c.Context, form)
			if err != nil {
				return err
			}

			fmt.Printf("added %s (%s, %s)\n", a.Name, a.Type, a.Category)

			// Showing an HOTP code would consume the counter
			if a.Type == otp.TypeHOTP {
				return nil
			}

			code, err := a.Code(time.Now())
			if err != nil {
				return err
			}

			fmt.Printf("%s\t%ds\n", e.display(code.Code), code.TimeRemaining)

			return nil
		},
	}
}

func importCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "list the accounts held in an Aegis backup",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: vaultFlag.Name, Usage: vaultFlag.Usage, Required: true},
			passwordFlag,
		},
		Action: func(c *cli.Context) error {
			if err := e.load(c); err != nil {
				return err
			}

			accounts, err := e.sorted(c)
			if err != nil {
				return err
			}

			var w *tabwriter.Writer = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ISSUER\tNAME\tTYPE\tCATEGORY")

			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Issuer, a.Name, a.Type, a.Category)
			}

			return w.Flush()
		},
	}
}

func exportCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write accounts given as URIs to an Aegis backup",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: uriFlag.Name, Aliases: uriFlag.Aliases, Usage: uriFlag.Usage, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: passwordFlag.Aliases, Usage: "encrypt the backup with this password"},
		},
		Action: func(c *cli.Context) error {
			if err := e.load(c); err != nil {
				return err
			}

			accounts, err := e.sorted(c)
			if err != nil {
				return err
			}

			db, err := vault.NewDb(accounts)
			if err != nil {
				return err
			}

			var out string = c.String("out")

			if c.String("password") == "" {
				e.logger.Warn("writing a plaintext backup", zap.String("path", out))
				return vault.Write(out, vault.Vault{Version: 1, Db: db})
			}

			sealed, err := vault.Seal(db, c.String("password"))
			if err != nil {
				return err
			}

			if err := vault.Write(out, sealed); err != nil {
				return err
			}

			e.logger.Info("backup written", zap.String("path", out), zap.Int("entries", len(db.Entries)))

			return nil
		},
	}
}

func qrCommand() *cli.Command {
	return &cli.Command{
		Name:      "qr",
		Usage:     "render a TOTP or HOTP URI as a QR code PNG",
		ArgsUsage: "URI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			&cli.IntFlag{Name: "size", Value: 256},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("qr takes exactly one URI", 2)
			}

			d, err := otpauth.Parse(c.Args().First())
			if err != nil {
				return err
			}

			key, err := d.Key()
			if err != nil {
				return err
			}

			img, err := key.Image(c.Int("size"), c.Int("size"))
			if err != nil {
				return err
			}

			f, err := os.OpenFile(c.String("out"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			defer f.Close()

			return png.Encode(f, img)
		},
	}
}

// addHint renders a pre-filled form as the add command that would
// complete it.
func addHint(f account.Form) string {
	var b strings.Builder

	b.WriteString("otpkit add")
	for _, kv := range [][2]string{
		{"name", f.Name},
		{"email", f.Email},
		{"issuer", f.Issuer},
		{"secret", f.Secret},
		{"type", string(f.Type)},
		{"category", string(f.Category)},
		{"algorithm", string(f.Algorithm)},
		{"digits", f.Digits},
		{"period", f.Period},
		{"counter", f.Counter},
		{"pin", f.PIN},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, " --%s %q", kv[0], kv[1])
		}
	}

	return b.String()
}

func enrollCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "enroll",
		Usage: "add accounts from scanned QR text read line by line from stdin",
		Action: func(c *cli.Context) error {
			var m *addflow.Machine = e.keeper.AddFlow()
			var sc *bufio.Scanner = bufio.NewScanner(os.Stdin)
			var failed int

			for sc.Scan() {
				var text string = strings.TrimSpace(sc.Text())
				if text == "" {
					continue
				}

				if _, err := m.Fire(addflow.OpenScanner); err != nil {
					return err
				}

				a, err := m.Scan(text)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "%v\n  complete it with: %s\n", err, addHint(m.Form()))

					if _, err := m.Fire(addflow.Cancel); err != nil {
						return err
					}
					continue
				}

				saved, err := e.keeper.Import(c.Context, []account.Account{*a})
				if err != nil {
					failed++
					e.logger.Warn("scanned account rejected", zap.String("name", a.Name), zap.Error(err))
					continue
				}

				fmt.Printf("added %s (%s, %s)\n", saved[0].Name, saved[0].Type, saved[0].Category)
			}

			if err := sc.Err(); err != nil {
				return err
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d scanned entries need manual completion", failed), 1)
			}

			return nil
		},
	}
}
