// Package client is the Go SDK for the tourism verification ledger served by ledgerd.
//
// Reads are public:
//
//	c, _ := client.New("http://localhost:8080")
//	g, err := c.VerifyGuide(ctx, "GUIDE_G001_1700000000000")
//	if errors.Is(err, client.ErrNotFound) {
//	    // unknown or superseded code
//	}
//
// Registrations need a registrar token and bookings any user token:
//
//	c, _ := client.New(base, client.WithBearerToken(token))
//	rc, err := c.RegisterGuide(ctx, client.Guide{GuideID: "G001", Name: "Asha"})
//	fmt.Println(rc.QRCode)
//
// Scan accepts any printed code and reports which kind of record it resolved to.
package client
