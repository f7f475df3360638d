package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alovak/fidelis-loyalty/fidelis/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <card-number>",
		Short: "Show the points balance of a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			balance, err := client.CardBalance(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]decimal.Decimal{"balance": balance})
		},
	}
}

func (c *cli) balancesCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "List the balances of every cardholder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseTime("since", since)
			if err != nil {
				return err
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			rows, err := client.CardBalances(commandContext(cmd), from)
			if err != nil {
				return err
			}
			return c.print(rows)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only balances changed since this RFC 3339 time")
	return cmd
}

func (c *cli) cardholderCmd() *cobra.Command {
	var card, email string

	cmd := &cobra.Command{
		Use:   "cardholder",
		Short: "Look up a cardholder by card number or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}

			var rows []models.Record
			if card != "" {
				rows, err = client.CardholderByCardNumber(commandContext(cmd), card)
			} else {
				rows, err = client.CardholderByEmail(commandContext(cmd), email)
			}
			if err != nil {
				return err
			}
			return c.print(rows)
		},
	}
	cmd.Flags().StringVar(&card, "card", "", "card number")
	cmd.Flags().StringVar(&email, "email", "", "cardholder email")
	cmd.MarkFlagsMutuallyExclusive("card", "email")
	cmd.MarkFlagsOneRequired("card", "email")
	return cmd
}

func (c *cli) vipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vip",
		Short: "Read or change the VIP status of a card",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <card-number>",
			Short: "Show the VIP status of a card",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := c.client()
				if err != nil {
					return err
				}
				status, err := client.VIPStatus(commandContext(cmd), args[0])
				if err != nil {
					return err
				}
				return c.print(map[string]int{"status": status})
			},
		},
		&cobra.Command{
			Use:   "set <card-number> <status>",
			Short: "Change the VIP status of a card",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("status must be an integer: %w", err)
				}
				client, err := c.client()
				if err != nil {
					return err
				}
				if err := client.SetVIPStatus(commandContext(cmd), args[0], status); err != nil {
					return err
				}
				return c.print(map[string]int{"status": status})
			},
		},
	)
	return cmd
}

func (c *cli) purchaseCmd() *cobra.Command {
	var card, amount string
	var expiresIn int

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Load points onto a card for a purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := transactionRequest(card, amount)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("expires-in") {
				req.ExpiresInDays = &expiresIn
			}

			client, err := c.client()
			if err != nil {
				return err
			}
			if err := client.CreatePurchase(commandContext(cmd), req); err != nil {
				return err
			}
			return c.print(map[string]string{"result": "ok"})
		},
	}
	cmd.Flags().StringVar(&card, "card", "", "card number")
	cmd.Flags().StringVar(&amount, "amount", "", "purchase amount in dollars")
	cmd.Flags().IntVar(&expiresIn, "expires-in", 0, "days until the loaded points expire")
	cmd.MarkFlagRequired("card")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) redeemCmd() *cobra.Command {
	var card, amount string
	var force bool

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Redeem points from a card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := transactionRequest(card, amount)
			if err != nil {
				return err
			}
			req.Force = force

			client, err := c.client()
			if err != nil {
				return err
			}
			if err := client.CreateRedemption(commandContext(cmd), req); err != nil {
				return err
			}
			return c.print(map[string]string{"result": "ok"})
		},
	}
	cmd.Flags().StringVar(&card, "card", "", "card number")
	cmd.Flags().StringVar(&amount, "amount", "", "redemption amount in dollars")
	cmd.Flags().BoolVar(&force, "force", false, "force the transaction")
	cmd.MarkFlagRequired("card")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) transactionsCmd() *cobra.Command {
	var from, to string
	var page int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List programme transactions",
		Long: `Lists the transactions of the programme. Without --page every page is
fetched in order and printed as one list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var dr models.DateRange
			var err error
			if dr.From, err = parseTime("from", from); err != nil {
				return err
			}
			if dr.To, err = parseTime("to", to); err != nil {
				return err
			}

			client, err := c.client()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("page") {
				result, err := client.TransactionsPage(commandContext(cmd), dr, page)
				if err != nil {
					return err
				}
				return c.print(result)
			}

			rows, err := client.Transactions(commandContext(cmd), dr)
			if err != nil {
				return err
			}
			return c.print(rows)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "RFC 3339 start of the range")
	cmd.Flags().StringVar(&to, "to", "", "RFC 3339 end of the range")
	cmd.Flags().IntVar(&page, "page", 1, "fetch only this page")
	return cmd
}

func (c *cli) expiringCmd() *cobra.Command {
	var email string
	var year, month int

	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "Show points expiring up to the end of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			rows, err := client.PointsExpiringByEmail(commandContext(cmd), email, year, time.Month(month))
			if err != nil {
				return err
			}
			return c.print(rows)
		},
	}
	now := time.Now()
	cmd.Flags().StringVar(&email, "email", "", "cardholder email")
	cmd.Flags().IntVar(&year, "year", now.Year(), "year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "month, 1..12")
	cmd.MarkFlagRequired("email")
	return cmd
}

func transactionRequest(card, amount string) (models.TransactionRequest, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return models.TransactionRequest{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if !amt.IsPositive() {
		return models.TransactionRequest{}, fmt.Errorf("amount must be positive")
	}
	return models.TransactionRequest{CardNumber: card, Amount: amt}, nil
}

func parseTime(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}
