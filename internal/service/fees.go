package service

import "github.com/shopspring/decimal"

// Fees is the fee breakdown of one payment. All amounts are rounded
// half-up to two decimal places at each step, in order, so the parts always
// reconcile: Commission + GatewayAmount == gross, Tax + NetAmount ==
// GatewayAmount.
type Fees struct {
	Commission     decimal.Decimal
	GatewayAmount  decimal.Decimal
	Tax            decimal.Decimal
	NetAmount      decimal.Decimal
	CommissionRate decimal.Decimal
	TaxRate        decimal.Decimal
}

// CalculateFees computes the breakdown for a gross amount. Commission is
// taken from the gross; tax is charged on what reaches the gateway, not on
// the gross.
func CalculateFees(gross, commissionRate, taxRate decimal.Decimal) Fees {
	commission := gross.Mul(commissionRate).Round(2)
	gatewayAmount := gross.Sub(commission)
	tax := gatewayAmount.Mul(taxRate).Round(2)
	netAmount := gatewayAmount.Sub(tax)

	return Fees{
		Commission:     commission,
		GatewayAmount:  gatewayAmount,
		Tax:            tax,
		NetAmount:      netAmount,
		CommissionRate: commissionRate,
		TaxRate:        taxRate,
	}
}
