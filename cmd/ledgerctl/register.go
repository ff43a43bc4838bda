package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmerrifield20/tourledger/pkg/client"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a guide, product or artisan (requires a registrar token)",
}

var (
	regName     string
	regLocation string
	regGovtID   string
	regStatus   string
	regCerts    []string
	regCrafts   []string

	prodArtisan string
	prodCraft   string
	prodCert    string
)

var registerGuideCmd = &cobra.Command{
	Use:   "guide <guide-id>",
	Short: "Register a tourist guide",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		rc, err := c.RegisterGuide(commandContext(cmd), client.Guide{
			GuideID:        args[0],
			Name:           regName,
			Location:       regLocation,
			Certifications: regCerts,
			GovtID:         regGovtID,
			Status:         regStatus,
		})
		if err != nil {
			return fmt.Errorf("register guide: %w", err)
		}
		return printReceipt(rc)
	},
}

var registerProductCmd = &cobra.Command{
	Use:   "product <product-id>",
	Short: "Register a handicraft product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		rc, err := c.RegisterProduct(commandContext(cmd), client.Product{
			ProductID:               args[0],
			ProductName:             regName,
			ArtisanName:             prodArtisan,
			Location:                regLocation,
			CraftType:               prodCraft,
			AuthenticityCertificate: prodCert,
		})
		if err != nil {
			return fmt.Errorf("register product: %w", err)
		}
		return printReceipt(rc)
	},
}

var registerArtisanCmd = &cobra.Command{
	Use:   "artisan <artisan-id>",
	Short: "Register an artisan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		rc, err := c.RegisterArtisan(commandContext(cmd), client.Artisan{
			ArtisanID:  args[0],
			Name:       regName,
			Location:   regLocation,
			CraftTypes: regCrafts,
			GovtID:     regGovtID,
			Status:     regStatus,
		})
		if err != nil {
			return fmt.Errorf("register artisan: %w", err)
		}
		return printReceipt(rc)
	},
}

func printReceipt(rc *client.Receipt) error {
	if done, err := printJSON(rc); done {
		return err
	}
	fmt.Printf("✓ Registered %s\n\n", rc.RecordID)
	fmt.Printf("  QR code: %s\n", rc.QRCode)
	fmt.Printf("  Hash:    %s\n", rc.Hash)
	return nil
}

var (
	bookTourist string
	bookID string
	bookAmount  string
	bookStatus  string
)

var bookCmd = &cobra.Command{
	Use:   "book <guide|homestay|experience> <service-id>",
	Short: "Record a booking on the ledger",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(bookAmount)
		if err != nil {
			return fmt.Errorf("parse --amount: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		rc, err := c.RecordBooking(commandContext(cmd), client.Booking{
			BookingID:   bookID,
			TouristID:   bookTourist,
			ServiceType: strings.ToLower(args[0]),
			ServiceID:   args[1],
			Amount:      amount,
			Status:      bookStatus,
		})
		if err != nil {
			return fmt.Errorf("record booking: %w", err)
		}
		if done, err := printJSON(rc); done {
			return err
		}
		fmt.Printf("✓ Booking %s recorded\n\n", rc.BookingID)
		fmt.Printf("  Confirmation: %s\n", rc.ConfirmationCode)
		fmt.Printf("  Hash:         %s\n", rc.Hash)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerGuideCmd, registerProductCmd, registerArtisanCmd} {
		c.Flags().StringVar(&regName, "name", "", "display name (product name for products)")
		c.Flags().StringVar(&regLocation, "location", "", "district or village")
		_ = c.MarkFlagRequired("name")
	}
	for _, c := range []*cobra.Command{registerGuideCmd, registerArtisanCmd} {
		c.Flags().StringVar(&regGovtID, "govt-id", "", "government identity number")
		c.Flags().StringVar(&regStatus, "status", "", "verified, pending or rejected (default verified)")
	}
	registerGuideCmd.Flags().StringSliceVar(&regCerts, "cert", nil, "certification (repeatable)")
	registerArtisanCmd.Flags().StringSliceVar(&regCrafts, "craft", nil, "craft type (repeatable)")
	registerProductCmd.Flags().StringVar(&prodArtisan, "artisan", "", "artisan name")
	registerProductCmd.Flags().StringVar(&prodCraft, "craft", "", "craft type")
	registerProductCmd.Flags().StringVar(&prodCert, "certificate", "", "authenticity certificate number")

	registerCmd.AddCommand(registerGuideCmd, registerProductCmd, registerArtisanCmd)

	bookCmd.Flags().StringVar(&bookID, "id", "", "booking id (default generated by the server)")
	bookCmd.Flags().StringVar(&bookTourist, "tourist", "", "tourist id (default the token subject)")
	bookCmd.Flags().StringVar(&bookAmount, "amount", "0", "amount paid")
	bookCmd.Flags().StringVar(&bookStatus, "status", "", "confirmed, pending, completed or cancelled (default confirmed)")
}
