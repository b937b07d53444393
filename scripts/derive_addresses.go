// derive_addresses.go prints the first addresses of a mnemonic along
// m/44'/60'/0'/0/i. English and Chinese phrases are accepted.
// Usage: go run scripts/derive_addresses.go <phrase-file> [count]
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-wallet/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_addresses <phrase-file> [count]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fatal(err)
	}
	count := 5
	if len(os.Args) > 2 {
		if count, err = strconv.Atoi(os.Args[2]); err != nil || count < 1 {
			fatal(fmt.Errorf("invalid count %q", os.Args[2]))
		}
	}

	phrase := strings.TrimSpace(string(data))
	lang, err := wallet.DetectLanguage(phrase, wallet.LanguageAuto)
	if err != nil {
		fatal(err)
	}
	if lang == wallet.LanguageChinese {
		if phrase, err = wallet.ToEnglish(phrase); err != nil {
			fatal(err)
		}
	}
	seed, err := wallet.SeedFromMnemonic(phrase, "")
	if err != nil {
		fatal(err)
	}
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("language=%s\n", lang)
	for i := 0; i < count; i++ {
		path := wallet.AccountPath(0, uint32(i))
		key, err := master.Derive(path)
		if err != nil {
			fatal(err)
		}
		addr, err := key.Address()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s %s\n", path, addr.Hex())
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
