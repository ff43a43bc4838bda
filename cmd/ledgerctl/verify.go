package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/tourledger/pkg/client"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a guide, product, artisan or booking",
}

// errUnverified makes the process exit non-zero when a code does not verify.
var errUnverified = errors.New("not verified")

func verifyOutcome(kind, code string, v any, err error) error {
	if errors.Is(err, client.ErrNotFound) {
		if done, jerr := printJSON(map[string]any{"verified": false}); done {
			if jerr != nil {
				return jerr
			}
			return errUnverified
		}
		fmt.Printf("✗ %s %s is not on the ledger\n", kind, code)
		return errUnverified
	}
	if err != nil {
		return fmt.Errorf("verify %s: %w", kind, err)
	}
	if done, err := printJSON(v); done {
		return err
	}
	fmt.Printf("✓ %s %s verified\n\n", kind, code)
	return nil
}

var verifyGuideCmd = &cobra.Command{
	Use:   "guide <qr-code>",
	Short: "Verify a guide QR code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		g, err := c.VerifyGuide(commandContext(cmd), args[0])
		if err := verifyOutcome("guide", args[0], g, err); err != nil || output == "json" {
			return err
		}
		fmt.Printf("  Name:           %s\n", g.Name)
		fmt.Printf("  Location:       %s\n", g.Location)
		fmt.Printf("  Status:         %s\n", g.Status)
		fmt.Printf("  Certifications: %s\n", strings.Join(g.Certifications, ", "))
		return nil
	},
}

var verifyProductCmd = &cobra.Command{
	Use:   "product <qr-code>",
	Short: "Verify a product QR code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		p, err := c.VerifyProduct(commandContext(cmd), args[0])
		if err := verifyOutcome("product", args[0], p, err); err != nil || output == "json" {
			return err
		}
		fmt.Printf("  Product:     %s\n", p.ProductName)
		fmt.Printf("  Artisan:     %s\n", p.ArtisanName)
		fmt.Printf("  Craft:       %s\n", p.CraftType)
		fmt.Printf("  Certificate: %s\n", p.AuthenticityCertificate)
		return nil
	},
}

var verifyArtisanCmd = &cobra.Command{
	Use:   "artisan <qr-code>",
	Short: "Verify an artisan QR code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		a, err := c.VerifyArtisan(commandContext(cmd), args[0])
		if err := verifyOutcome("artisan", args[0], a, err); err != nil || output == "json" {
			return err
		}
		fmt.Printf("  Name:     %s\n", a.Name)
		fmt.Printf("  Location: %s\n", a.Location)
		fmt.Printf("  Crafts:   %s\n", strings.Join(a.CraftTypes, ", "))
		return nil
	},
}

var verifyBookingCmd = &cobra.Command{
	Use:   "booking <booking-id | BOOKING_code>",
	Short: "Verify a booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.VerifyBooking(commandContext(cmd), args[0])
		if err := verifyOutcome("booking", args[0], b, err); err != nil || output == "json" {
			return err
		}
		fmt.Printf("  Tourist: %s\n", b.TouristID)
		fmt.Printf("  Service: %s %s\n", b.ServiceType, b.ServiceID)
		fmt.Printf("  Amount:  %s\n", b.Amount.StringFixed(2))
		fmt.Printf("  Status:  %s\n", b.Status)
		fmt.Printf("  Hash:    %s\n", b.Hash)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <code>",
	Short: "Verify any printed code, whatever its kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Scan(commandContext(cmd), args[0])
		if err := verifyOutcome("code", args[0], res, err); err != nil || output == "json" {
			return err
		}
		fmt.Printf("  Type:   %s\n", res.Type)
		fmt.Printf("  Record: %s\n", string(res.Record))
		return nil
	},
}

func init() {
	verifyCmd.AddCommand(verifyGuideCmd, verifyProductCmd, verifyArtisanCmd, verifyBookingCmd)
}
