// This is free and unencumbered software released into the public domain.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/skeeto/optparse-go"

	"nullprogram.com/x/pgpsign/openpgp"
)

const (
	cmdKey = iota
	cmdSign
	cmdClearsign
	cmdExport
)

// fatal prints the message like fmt.Printf() and then exits 1, the
// same shape as the reference implementation's fatal().
func fatal(format string, args ...interface{}) {
	buf := bytes.NewBufferString("pgpsign: ")
	fmt.Fprintf(buf, format, args...)
	buf.WriteRune('\n')
	os.Stderr.Write(buf.Bytes())
	os.Exit(1)
}

// firstLine returns the first line of a file, without a trailing
// newline, used to read a passphrase from a file non-interactively.
func firstLine(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	if !s.Scan() {
		if err := s.Err(); err != nil && err != io.EOF {
			return nil, err
		}
		return nil, nil
	}
	return s.Bytes(), nil
}

type config struct {
	cmd  int
	args []string

	armor    bool
	compress bool
	textmode bool
	rfc1991  bool
	detached bool
	secret   bool
	protect  bool
	public   bool
	verbose  bool

	uid      string
	input    string
	keyring  string
	outfile  string
	created  int64
}

func usage(w io.Writer) {
	bw := bufio.NewWriter(w)
	i := "  "
	p := "pgpsign"
	f := func(s ...interface{}) { fmt.Fprintln(bw, s...) }
	f("Usage:")
	f(i, p, "-K -u id [-ap] [-i pwfile] [-t secs|-n]")
	f(i, p, "-S -u id [-adT] [-i pwfile] [files...]")
	f(i, p, "-C -u id [-i pwfile] [file]")
	f(i, p, "-E -k ring [-as] [selectors...]")
	f("Commands:")
	f(i, "-K, --key              derive and output a signing key")
	f(i, "-S, --sign             output a signature (detached with -d)")
	f(i, "-C, --clearsign        output a cleartext signature")
	f(i, "-E, --export           export key blocks from a keyring")
	f("Options:")
	f(i, "-a, --armor            encode output in ASCII armor")
	f(i, "-c, --compress         enable compression")
	f(i, "-d, --detach           detached signature (sign only)")
	f(i, "-h, --help             print this help message")
	f(i, "-i, --input FILE       read passphrase from file")
	f(i, "-k, --keyring FILE     keyring to export from (export only)")
	f(i, "-n, --now              use current time as creation date")
	f(i, "-o, --output FILE      explicit output path")
	f(i, "-p, --public           only output the public key (key only)")
	f(i, "-P, --protect          encrypt the secret key with the passphrase")
	f(i, "-r, --rfc1991          force old-style packets and v3 signatures")
	f(i, "-s, --secret           export the secret keyring (export only)")
	f(i, "-t, --time SECONDS     key creation date (unix epoch seconds)")
	f(i, "-T, --textmode         canonicalize input as text before signing")
	f(i, "-u, --uid USERID       user ID for the signing key")
	f(i, "-v, --verbose          print additional progress information")
	bw.Flush()
}

func parse() *config {
	conf := config{cmd: cmdKey, created: 0}

	options := []optparse.Option{
		{"key", 'K', optparse.KindNone},
		{"sign", 'S', optparse.KindNone},
		{"clearsign", 'C', optparse.KindNone},
		{"export", 'E', optparse.KindNone},

		{"armor", 'a', optparse.KindNone},
		{"compress", 'c', optparse.KindNone},
		{"detach", 'd', optparse.KindNone},
		{"help", 'h', optparse.KindNone},
		{"input", 'i', optparse.KindRequired},
		{"keyring", 'k', optparse.KindRequired},
		{"now", 'n', optparse.KindNone},
		{"output", 'o', optparse.KindRequired},
		{"public", 'p', optparse.KindNone},
		{"protect", 'P', optparse.KindNone},
		{"rfc1991", 'r', optparse.KindNone},
		{"secret", 's', optparse.KindNone},
		{"time", 't', optparse.KindRequired},
		{"textmode", 'T', optparse.KindNone},
		{"uid", 'u', optparse.KindRequired},
		{"verbose", 'v', optparse.KindNone},
	}

	args := os.Args
	if len(args) == 4 && args[1] == "--status-fd=2" && args[2] == "-bsau" {
		// Pretend to be GnuPG so Git's porcelain can invoke this binary
		// as its signing program (SPEC_FULL.md SUPPLEMENTED FEATURES
		// §1), mirroring the reference implementation's identical
		// special case for key generation.
		args = []string{args[0], "--sign", "--detach", "--armor", "--uid", args[3]}
		os.Stderr.WriteString("\n[GNUPG:] SIG_CREATED ")
	}

	results, rest, err := optparse.Parse(options, args)
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, result := range results {
		switch result.Long {
		case "key":
			conf.cmd = cmdKey
		case "sign":
			conf.cmd = cmdSign
		case "clearsign":
			conf.cmd = cmdClearsign
		case "export":
			conf.cmd = cmdExport

		case "armor":
			conf.armor = true
		case "compress":
			conf.compress = true
		case "detach":
			conf.detached = true
		case "help":
			usage(os.Stdout)
			os.Exit(0)
		case "input":
			conf.input = result.Optarg
		case "keyring":
			conf.keyring = result.Optarg
		case "now":
			conf.created = time.Now().Unix()
		case "output":
			conf.outfile = result.Optarg
		case "public":
			conf.public = true
		case "protect":
			conf.protect = true
		case "rfc1991":
			conf.rfc1991 = true
		case "secret":
			conf.secret = true
		case "time":
			t, err := strconv.ParseUint(result.Optarg, 10, 32)
			if err != nil {
				fatal("--time (-t): %s", err)
			}
			conf.created = int64(t)
		case "textmode":
			conf.textmode = true
		case "uid":
			conf.uid = result.Optarg
			if len(conf.uid) > 255 {
				fatal("user ID length must be <= 255 bytes")
			}
			if !utf8.ValidString(conf.uid) {
				fatal("user ID must be valid UTF-8")
			}
		case "verbose":
			conf.verbose = true
		}
	}

	if conf.uid == "" && conf.cmd != cmdExport {
		if email := os.Getenv("EMAIL"); email != "" {
			if realname := os.Getenv("REALNAME"); realname != "" {
				conf.uid = fmt.Sprintf("%s <%s>", realname, email)
			}
		}
		if conf.uid == "" {
			fatal("--uid required (or $REALNAME and $EMAIL)")
		}
	}

	conf.args = rest
	if conf.cmd == cmdClearsign && len(conf.args) > 1 {
		fatal("too many arguments")
	}
	if conf.cmd == cmdKey && len(conf.args) > 0 {
		fatal("too many arguments")
	}
	return &conf
}

func readPassphrase(conf *config) []byte {
	if conf.input != "" {
		p, err := firstLine(conf.input)
		if err != nil {
			fatal("%s", err)
		}
		return p
	}
	fmt.Fprint(os.Stderr, "passphrase: ")
	s := bufio.NewScanner(os.Stdin)
	if !s.Scan() {
		fatal("no passphrase given")
	}
	return s.Bytes()
}

func optionsFrom(conf *config) *openpgp.Options {
	return &openpgp.Options{
		Armor:    conf.armor,
		TextMode: conf.textmode,
		Compress: conf.compress,
		RFC1991:  conf.rfc1991,
		Verbose:  conf.verbose,
		Outfile:  conf.outfile,
		Log: func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, "pgpsign: "+format+"\n", args...)
		},
	}
}

func deriveKey(conf *config) *openpgp.GeneratedKey {
	passphrase := readPassphrase(conf)
	seed := openpgp.DeriveSeed(passphrase, []byte(conf.uid), 1)
	return openpgp.GenerateSigningKey(seed, conf.created)
}

func runKey(conf *config) {
	req := &openpgp.KeyGenRequest{
		Passphrase: readPassphrase(conf),
		UserID:     conf.uid,
		Created:    conf.created,
		Secret:     !conf.public,
		Protect:    conf.protect,
		Options:    optionsFrom(conf),
	}
	if err := openpgp.GenerateKeyFile(req); err != nil {
		fatal("%s", err)
	}
}

func runSign(conf *config) {
	g := deriveKey(conf)
	req := &openpgp.SignRequest{
		Filenames: conf.args,
		Keys:      []*openpgp.SecretKey{g.Secret},
		Detached:  conf.detached,
		Options:   optionsFrom(conf),
	}
	if err := openpgp.SignFile(req); err != nil {
		fatal("%s", err)
	}
}

func runClearsign(conf *config) {
	g := deriveKey(conf)
	var filename string
	if len(conf.args) == 1 {
		filename = conf.args[0]
	}
	req := &openpgp.ClearsignRequest{
		Filename: filename,
		Keys:     []*openpgp.SecretKey{g.Secret},
		Options:  optionsFrom(conf),
	}
	if err := openpgp.ClearsignFile(req); err != nil {
		fatal("%s", err)
	}
}

func runExport(conf *config) {
	if conf.keyring == "" {
		fatal("--keyring required")
	}
	req := &openpgp.ExportRequest{
		KeyringPath: conf.keyring,
		Secret:      conf.secret,
		Selectors:   conf.args,
		Options:     optionsFrom(conf),
	}
	if err := openpgp.ExportKeys(req); err != nil {
		fatal("%s", err)
	}
}

func main() {
	conf := parse()
	switch conf.cmd {
	case cmdKey:
		runKey(conf)
	case cmdSign:
		runSign(conf)
	case cmdClearsign:
		runClearsign(conf)
	case cmdExport:
		runExport(conf)
	}
}
