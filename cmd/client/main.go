package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/padipay/padipay-go/internal/app"
	"github.com/padipay/padipay-go/internal/billpay"
	"github.com/padipay/padipay-go/internal/config"
	"github.com/padipay/padipay-go/internal/logger"
	"github.com/padipay/padipay-go/internal/screens"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func promptPassword(label string) string {
	fmt.Print(label)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(pw)
}

func printView(v screens.View) {
	if v.RedirectToLogin {
		fmt.Println("Not logged in. Use 'login' or 'register'.")
		return
	}
	if v.Err != nil {
		fmt.Println("Error:", v.Err)
	}
	if v.Fullname == "" && v.Balance == "" {
		fmt.Println("No dashboard data yet. Try 'refresh'.")
		return
	}
	fmt.Printf("%s <%s>\n", v.Fullname, v.Email)
	fmt.Printf("Balance: %s\n", v.Balance)
	for _, tx := range v.Transactions {
		fmt.Printf("  [%s] %s %s  %s (%s)\n", tx.Status, tx.Type, tx.Amount, tx.Description, tx.Timestamp)
	}
}

// repl runs the interactive shell loop.
func repl(a *app.App) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("padipay> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login, register, dashboard, wallet, profile, refresh,")
			fmt.Println("  airtime, data, power, cable, nin, fund, verify-fund, cac,")
			fmt.Println("  admin-users, admin-credit, whoami, logout, clear-data, exit")
		case "login":
			email := prompt(scanner, "Email: ")
			password := promptPassword("Password: ")
			user, err := a.Sessions.Login(ctx, email, password)
			if err != nil {
				fmt.Println("Login failed:", err)
				continue
			}
			fmt.Println("Welcome,", user.Fullname)
		case "register":
			fullname := prompt(scanner, "Full name: ")
			email := prompt(scanner, "Email: ")
			password := promptPassword("Password: ")
			user, err := a.Sessions.Register(ctx, fullname, email, password)
			if err != nil {
				fmt.Println("Registration failed:", err)
				continue
			}
			fmt.Println("Account created for", user.Fullname)
		case "dashboard":
			printView(a.Home.Mount(ctx))
		case "wallet":
			printView(a.Wallet.Mount(ctx))
		case "profile":
			printView(a.Profile.Mount(ctx))
		case "refresh":
			printView(a.Home.PullToRefresh(ctx))
		case "airtime":
			req := billpay.AirtimeRequest{
				Network: prompt(scanner, "Network: "),
				Phone:   prompt(scanner, "Phone: "),
				Amount:  prompt(scanner, "Amount: "),
			}
			receipt, err := a.Billpay.BuyAirtime(ctx, req)
			if err != nil {
				fmt.Println("Purchase failed:", err)
				continue
			}
			fmt.Printf("%s (ref %s)\n", receipt.Message, receipt.Reference)
		case "data":
			req := billpay.DataRequest{
				Network: prompt(scanner, "Network: "),
				Phone:   prompt(scanner, "Phone: "),
				PlanID:  prompt(scanner, "Plan ID: "),
			}
			receipt, err := a.Billpay.BuyData(ctx, req)
			if err != nil {
				fmt.Println("Purchase failed:", err)
				continue
			}
			fmt.Printf("%s (ref %s)\n", receipt.Message, receipt.Reference)
		case "power":
			req := billpay.ElectricityRequest{
				Disco:       prompt(scanner, "Disco: "),
				MeterNumber: prompt(scanner, "Meter number: "),
				MeterType:   prompt(scanner, "Meter type (prepaid/postpaid): "),
				Amount:      prompt(scanner, "Amount: "),
				Phone:       prompt(scanner, "Phone: "),
			}
			receipt, err := a.Billpay.PayElectricity(ctx, req)
			if err != nil {
				fmt.Println("Payment failed:", err)
				continue
			}
			fmt.Printf("%s (ref %s)\n", receipt.Message, receipt.Reference)
		case "cable":
			req := billpay.CableRequest{
				Provider:  prompt(scanner, "Provider: "),
				Smartcard: prompt(scanner, "Smartcard number: "),
				PlanID:    prompt(scanner, "Plan ID: "),
				Phone:     prompt(scanner, "Phone: "),
			}
			receipt, err := a.Billpay.PayCable(ctx, req)
			if err != nil {
				fmt.Println("Payment failed:", err)
				continue
			}
			fmt.Printf("%s (ref %s)\n", receipt.Message, receipt.Reference)
		case "nin":
			record, err := a.Billpay.VerifyNIN(ctx, prompt(scanner, "NIN: "))
			if err != nil {
				fmt.Println("Verification failed:", err)
				continue
			}
			fmt.Printf("%s (born %s)\n", record.Fullname, record.DateOfBirth)
		case "fund":
			intent, err := a.Billpay.FundWallet(ctx, prompt(scanner, "Amount: "))
			if err != nil {
				fmt.Println("Funding failed:", err)
				continue
			}
			fmt.Println("Complete payment at:", intent.AuthorizationURL)
			fmt.Println("Then run: verify-fund", intent.Reference)
		case "verify-fund":
			if len(args) < 2 {
				fmt.Println("Usage: verify-fund <reference>")
				continue
			}
			receipt, err := a.Billpay.VerifyFunding(ctx, args[1])
			if err != nil {
				fmt.Println("Verification failed:", err)
				continue
			}
			fmt.Println(receipt.Message)
			printView(a.Home.PullToRefresh(ctx))
		case "cac":
			req := billpay.CACRequest{
				BusinessName: prompt(scanner, "Business name: "),
				Nature:       prompt(scanner, "Nature of business: "),
				OwnerNIN:     prompt(scanner, "Owner NIN: "),
			}
			if path := prompt(scanner, "Document path (optional): "); path != "" {
				content, err := os.ReadFile(path)
				if err != nil {
					fmt.Println("Failed to read document:", err)
					continue
				}
				req.Documents = append(req.Documents, billpay.CACDocument{Name: path, Content: content})
			}
			receipt, err := a.Billpay.SubmitCACRegistration(ctx, req)
			if err != nil {
				fmt.Println("Submission failed:", err)
				continue
			}
			fmt.Printf("%s (ref %s)\n", receipt.Message, receipt.Reference)
		case "admin-users":
			users, err := a.Admin.ListUsers(ctx)
			if err != nil {
				fmt.Println("Failed:", err)
				continue
			}
			for _, u := range users {
				fmt.Printf("%s  %s <%s>  balance %s\n", u.ID, u.Fullname, u.Email, u.Balance)
			}
		case "admin-credit":
			userID := prompt(scanner, "User ID: ")
			amount := prompt(scanner, "Amount: ")
			if err := a.Admin.CreditWallet(ctx, userID, amount); err != nil {
				fmt.Println("Failed:", err)
				continue
			}
			fmt.Println("Wallet credited")
		case "whoami":
			if !a.Sessions.IsAuthenticated() {
				fmt.Println("Not logged in")
				continue
			}
			fmt.Println("User ID:", a.Sessions.CurrentUserID())
		case "logout":
			a.Sessions.Logout(ctx)
			fmt.Println("Logged out")
		case "clear-data":
			a.Sessions.ClearAllData(ctx)
			fmt.Println("All local data cleared")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

// main parses configuration, assembles the application and starts the shell.
func main() {
	options := config.Parse()

	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("PadiPay Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}

	a, err := app.New(options, log.Log)
	if err != nil {
		log.Log.Fatal("failed to assemble application", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	restored, err := a.Sessions.Restore(context.Background())
	if err != nil {
		log.Log.Warn("failed to restore session", zap.Error(err))
	}
	if restored {
		fmt.Println("Session restored. Type 'dashboard' to load your wallet.")
	}

	repl(a)
}
