package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/router-for-me/CozeSDK/internal/util"
	"github.com/router-for-me/CozeSDK/sdk/coze"
)

// DoToken fetches a fresh access token and prints it, masked unless reveal is set.
func DoToken(ctx context.Context, cz *coze.Client, reveal bool, out io.Writer) error {
	token, err := cz.Tokens.GetToken(ctx, true)
	if err != nil {
		return err
	}
	if !reveal {
		token = util.MaskToken(token)
	}
	fmt.Fprintln(out, token)
	return nil
}
