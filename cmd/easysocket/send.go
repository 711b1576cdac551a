package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/kleeedolinux/easysocket/socket"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var (
		addr string
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "send {tcp|udp|ws} <event>",
		Short: "Emit one event and optionally print one reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			event := args[1]

			switch args[0] {
			case "udp":
				return socket.SendUDP(ctx, addr, event)

			case "tcp":
				// the demo server greets first, then waits for our event
				s, err := socket.DialTCP(ctx, addr)
				if err != nil {
					return err
				}
				defer s.Close()
				if wait {
					if err := printNext(cmd, s); err != nil {
						return err
					}
				}
				return s.Emit(event)

			case "ws":
				s, err := socket.DialWS(ctx, "ws://"+addr+"/")
				if err != nil {
					return err
				}
				defer s.Close()
				if err := s.Emit(event); err != nil {
					return err
				}
				if wait {
					return printNext(cmd, s)
				}
				return nil

			default:
				return fmt.Errorf("unknown transport %q", args[0])
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "server address")
	cmd.Flags().BoolVar(&wait, "wait", true, "print one inbound message")
	return cmd
}

func printNext(cmd *cobra.Command, s *socket.Socket) error {
	s.On(socket.EventMessage, func(msg string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Client received: %s\n", msg)
	})
	if s.Transport().MessageOriented() {
		err := s.Listen(cmd.Context())
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	// stream reads are keyed by content only, so print whatever arrives
	data, err := s.Conn().Read(cmd.Context())
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	msg, _ := socket.RawCodec{}.Decode(data)
	fmt.Fprintf(cmd.OutOrStdout(), "Client received: %s\n", msg.Text())
	return nil
}
