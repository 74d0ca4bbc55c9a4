package walletkey

import coreerr "github.com/abcore/core/pkg/errors"

// ErrWalletNotFound is returned for a missing Wallets/<uuid>.json record.
var ErrWalletNotFound = coreerr.New("WALLET_NOT_FOUND", "wallet record not found")

func coreFileReadErr() error  { return coreerr.ErrFileReadError }
func coreFileWriteErr() error { return coreerr.ErrFileWriteError }
func coreJSONErr() error      { return coreerr.ErrJSONError }
