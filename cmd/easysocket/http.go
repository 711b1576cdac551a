package main

import (
	"fmt"

	"github.com/kleeedolinux/easysocket/socket"
	"github.com/kleeedolinux/easysocket/socket/minihttp"
	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	var addr, path string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Send a raw HTTP/1.1 GET and print the response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := minihttp.Get(cmd.Context(), addr, path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "server address")
	cmd.Flags().StringVar(&path, "path", "/", "request path")
	return cmd
}

func postCmd() *cobra.Command {
	var addr, path, body string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Send a raw HTTP/1.1 POST and print the response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := minihttp.Post(cmd.Context(), addr, path, body)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "server address")
	cmd.Flags().StringVar(&path, "path", "/", "request path")
	cmd.Flags().StringVar(&body, "body", "", "request body")
	return cmd
}

func latestCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Read a TCP stream until it closes and print its last line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := socket.DialTCP(cmd.Context(), addr)
			if err != nil {
				return err
			}
			defer s.Close()

			line, err := s.LatestMessage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "server address")
	return cmd
}
