package model

// SiteSettings is the singleton bank-transfer instruction record (remote
// row id=1).
type SiteSettings struct {
	BankName            string `json:"bankName"`
	AccountName         string `json:"accountName"`
	AccountNumber       string `json:"accountNumber"`
	PaymentInstructions string `json:"paymentInstructions"`
}

// DefaultSiteSettings is served until the remote row has been fetched.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		BankName:            "Global Digital Bank",
		AccountName:         "Victor SMM Services",
		AccountNumber:       "123-456-7890",
		PaymentInstructions: "After sending payment, please enter the amount and upload a screenshot of the transaction in the form below to submit your deposit request.",
	}
}
