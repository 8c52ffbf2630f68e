package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"learnchain/config"
	"learnchain/core"
	"learnchain/crypto"
	"learnchain/rpc"
)

const emergencyAdminMethod = "academy.emergencyAdmin"

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("learn-cli "+name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) parse(fs *flag.FlagSet, args []string) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		c.fail("unexpected positional arguments: %s", strings.Join(fs.Args(), " "))
		return false
	}
	return true
}

func (c *cli) query(method string, param interface{}) int {
	return c.request(method, false, param)
}

func (c *cli) request(method string, auth bool, param interface{}) int {
	var params []interface{}
	if param != nil {
		params = append(params, param)
	}
	result, rpcErr, err := c.client.call(method, auth, params...)
	if err != nil {
		fmt.Fprintf(c.stderr, "RPC call failed: %v\n", err)
		return 1
	}
	if rpcErr != nil {
		return c.printRPCError(rpcErr)
	}
	if err := c.print(result); err != nil {
		return c.fail("%v", err)
	}
	return 0
}

// send signs method with the keystore and submits it.
func (c *cli) send(method string, params interface{}, value *big.Int) int {
	key, err := c.loadKey()
	if err != nil {
		return c.fail("%v", err)
	}
	call, err := c.client.signCall(key, c.chainID, method, params, value)
	if err != nil {
		return c.fail("%v", err)
	}
	return c.query("academy_sendCall", call)
}

func (c *cli) printRPCError(rpcErr *rpcError) int {
	fmt.Fprintf(c.stderr, "RPC error %d: %s\n", rpcErr.Code, rpcErr.Message)
	if len(rpcErr.Data) > 0 && string(rpcErr.Data) != "null" {
		_ = c.printTo(c.stderr, rpcErr.Data)
	}
	return 1
}

func parseValue(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func (c *cli) runKeygen(args []string) int {
	fs := c.flags("keygen")
	out := fs.String("out", c.keystore, "keystore path to create")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if !c.parse(fs, args) {
		return 1
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		return c.fail("%s already exists; pass --force to replace it", *out)
	}
	pass, err := c.pass.Get()
	if err != nil {
		return c.fail("%v", err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return c.fail("generate key: %v", err)
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return c.fail("save keystore: %v", err)
	}
	fmt.Fprintf(c.stdout, "%s\n", key.PubKey().Address().String())
	fmt.Fprintf(c.stderr, "Keystore written to %s\n", *out)
	return 0
}

func (c *cli) runAddress(args []string) int {
	if !c.parse(c.flags("address"), args) {
		return 1
	}
	key, err := c.loadKey()
	if err != nil {
		return c.fail("%v", err)
	}
	fmt.Fprintln(c.stdout, key.PubKey().Address().String())
	return 0
}

// addressOrSelf falls back to the keystore address when addr is empty.
func (c *cli) addressOrSelf(addr string) (string, error) {
	if addr = strings.TrimSpace(addr); addr != "" {
		return addr, nil
	}
	key, err := c.loadKey()
	if err != nil {
		return "", err
	}
	return key.PubKey().Address().String(), nil
}

func (c *cli) runAccount(args []string) int {
	fs := c.flags("account")
	addr := fs.String("addr", "", "address to inspect (defaults to the keystore address)")
	if !c.parse(fs, args) {
		return 1
	}
	target, err := c.addressOrSelf(*addr)
	if err != nil {
		return c.fail("%v", err)
	}
	return c.query("node_getAccount", map[string]string{"address": target})
}

func (c *cli) runCourse(args []string) int {
	if len(args) == 0 {
		return c.fail("course requires a subcommand")
	}
	sub, args := args[0], args[1:]
	fs := c.flags("course " + sub)
	switch sub {
	case "create":
		title := fs.String("title", "", "course title")
		description := fs.String("description", "", "course description")
		metadata := fs.String("metadata", "", "metadata URI")
		price := fs.String("price", "0", "price in base units")
		if !c.parse(fs, args) {
			return 1
		}
		return c.send(core.MethodCreateCourse, core.CreateCourseParams{
			Title: *title, Description: *description, MetadataURI: *metadata, Price: *price,
		}, nil)
	case "update":
		id := fs.Uint64("id", 0, "course id")
		title := fs.String("title", "", "new title")
		description := fs.String("description", "", "new description")
		metadata := fs.String("metadata", "", "new metadata URI")
		price := fs.String("price", "", "new price in base units")
		active := fs.Bool("active", true, "whether the course accepts enrollments")
		if !c.parse(fs, args) {
			return 1
		}
		return c.send(core.MethodUpdateCourse, core.UpdateCourseParams{
			CourseID: *id, Title: *title, Description: *description, MetadataURI: *metadata,
			Price: *price, IsActive: *active,
		}, nil)
	case "get", "students":
		id := fs.Uint64("id", 0, "course id")
		if !c.parse(fs, args) {
			return 1
		}
		method := "academy_getCourse"
		if sub == "students" {
			method = "academy_courseStudents"
		}
		return c.query(method, map[string]uint64{"courseId": *id})
	case "enroll":
		id := fs.Uint64("id", 0, "course id")
		value := fs.String("value", "", "payment attached to the call")
		if !c.parse(fs, args) {
			return 1
		}
		paid, err := parseValue(*value)
		if err != nil {
			return c.fail("%v", err)
		}
		return c.send(core.MethodEnroll, core.CourseParams{CourseID: *id}, paid)
	case "complete", "retry":
		id := fs.Uint64("id", 0, "course id")
		student := fs.String("student", "", "student address")
		uri := fs.String("uri", "", "certificate URI")
		if !c.parse(fs, args) {
			return 1
		}
		method := core.MethodCompleteCourse
		if sub == "retry" {
			method = core.MethodRetryCertificate
		}
		return c.send(method, core.CompletionParams{CourseID: *id, Student: *student, CertificateURI: *uri}, nil)
	case "list":
		author := fs.String("author", "", "list courses created by this author")
		student := fs.String("student", "", "list courses this student enrolled in")
		if !c.parse(fs, args) {
			return 1
		}
		switch {
		case *author != "" && *student == "":
			return c.query("academy_authorCourses", map[string]string{"address": *author})
		case *student != "" && *author == "":
			return c.query("academy_studentCourses", map[string]string{"address": *student})
		default:
			return c.fail("pass exactly one of --author or --student")
		}
	default:
		return c.fail("unknown course subcommand %q", sub)
	}
}

func (c *cli) runEnrollment(args []string) int {
	fs := c.flags("enrollment")
	id := fs.Uint64("id", 0, "course id")
	student := fs.String("student", "", "student address (defaults to the keystore address)")
	if !c.parse(fs, args) {
		return 1
	}
	target, err := c.addressOrSelf(*student)
	if err != nil {
		return c.fail("%v", err)
	}
	return c.query("academy_getEnrollment", map[string]interface{}{"courseId": *id, "student": target})
}

func (c *cli) runWithdraw(args []string) int {
	if len(args) != 1 {
		return c.fail("withdraw requires author or platform")
	}
	switch args[0] {
	case "author":
		return c.send(core.MethodAuthorWithdraw, nil, nil)
	case "platform":
		return c.send(core.MethodPlatformWithdraw, nil, nil)
	default:
		return c.fail("unknown withdraw target %q", args[0])
	}
}

func (c *cli) runAdmin(args []string) int {
	if len(args) == 0 {
		return c.fail("admin requires a subcommand")
	}
	sub, args := args[0], args[1:]
	fs := c.flags("admin " + sub)
	switch sub {
	case "fee":
		bps := fs.Uint64("bps", 0, "platform fee in basis points")
		if !c.parse(fs, args) {
			return 1
		}
		return c.send(core.MethodUpdateFee, core.FeeParams{FeeBps: *bps}, nil)
	case "set-admin", "transfer-owner":
		addr := fs.String("addr", "", "target address")
		if !c.parse(fs, args) {
			return 1
		}
		method := core.MethodSetAdmin
		if sub == "transfer-owner" {
			method = core.MethodTransferOwner
		}
		return c.send(method, core.AddressParams{Address: *addr}, nil)
	case "pause", "unpause", "pause-minting", "resume-minting":
		if !c.parse(fs, args) {
			return 1
		}
		method := map[string]string{
			"pause":          core.MethodPause,
			"unpause":        core.MethodUnpause,
			"pause-minting":  core.MethodPauseMinting,
			"resume-minting": core.MethodResumeMinting,
		}[sub]
		return c.send(method, nil, nil)
	case "emergency-admin":
		if !c.parse(fs, args) {
			return 1
		}
		key, err := c.loadKey()
		if err != nil {
			return c.fail("%v", err)
		}
		call, err := c.client.signCall(key, c.chainID, emergencyAdminMethod, nil, nil)
		if err != nil {
			return c.fail("%v", err)
		}
		return c.query("academy_emergencyAdmin", call)
	case "contract":
		if !c.parse(fs, args) {
			return 1
		}
		return c.query("academy_certificateContract", nil)
	default:
		return c.fail("unknown admin subcommand %q", sub)
	}
}

func (c *cli) runBalance(args []string) int {
	fs := c.flags("balance")
	author := fs.String("author", "", "author whose withdrawable balance to show")
	platform := fs.Bool("platform", false, "show the platform fee balance")
	fee := fs.Bool("fee", false, "show the platform fee rate")
	if !c.parse(fs, args) {
		return 1
	}
	switch {
	case *platform:
		return c.query("academy_platformBalance", nil)
	case *fee:
		return c.query("academy_platformFee", nil)
	default:
		target, err := c.addressOrSelf(*author)
		if err != nil {
			return c.fail("%v", err)
		}
		return c.query("academy_authorBalance", map[string]string{"address": target})
	}
}

func (c *cli) runCertificate(args []string) int {
	if len(args) == 0 {
		return c.fail("cert requires get or list")
	}
	sub, args := args[0], args[1:]
	fs := c.flags("cert " + sub)
	switch sub {
	case "get":
		id := fs.Uint64("id", 0, "certificate id")
		if !c.parse(fs, args) {
			return 1
		}
		return c.query("certificate_get", map[string]uint64{"certificateId": *id})
	case "list":
		owner := fs.String("owner", "", "certificate owner (defaults to the keystore address)")
		if !c.parse(fs, args) {
			return 1
		}
		target, err := c.addressOrSelf(*owner)
		if err != nil {
			return c.fail("%v", err)
		}
		return c.query("certificate_listByOwner", map[string]string{"address": target})
	default:
		return c.fail("unknown cert subcommand %q", sub)
	}
}

func (c *cli) runFaucet(args []string) int {
	fs := c.flags("faucet")
	addr := fs.String("addr", "", "address to fund (defaults to the keystore address)")
	amount := fs.String("amount", "", "amount in base units")
	if !c.parse(fs, args) {
		return 1
	}
	target, err := c.addressOrSelf(*addr)
	if err != nil {
		return c.fail("%v", err)
	}
	return c.request("node_faucet", true, map[string]string{"address": target, "amount": *amount})
}

func (c *cli) runEvents(args []string) int {
	fs := c.flags("events")
	evtType := fs.String("type", "", "exact event type")
	contract := fs.String("contract", "", "academy or certificate")
	account := fs.String("account", "", "account the event concerns")
	course := fs.Int64("course", -1, "course id")
	after := fs.Uint64("after", 0, "return events with a larger id")
	limit := fs.Int("limit", 0, "maximum number of events")
	if !c.parse(fs, args) {
		return 1
	}
	filter := map[string]interface{}{}
	if *evtType != "" {
		filter["type"] = *evtType
	}
	if *contract != "" {
		filter["contract"] = *contract
	}
	if *account != "" {
		filter["account"] = *account
	}
	if *course >= 0 {
		filter["courseId"] = *course
	}
	if *after > 0 {
		filter["afterId"] = *after
	}
	if *limit > 0 {
		filter["limit"] = *limit
	}
	return c.request("indexer_listEvents", true, filter)
}

func (c *cli) runToken(args []string) int {
	fs := c.flags("token")
	secret := fs.String("secret", os.Getenv(config.EnvOperatorSecret), "shared operator secret")
	issuer := fs.String("issuer", "learnd", "token issuer; must match the node's OperatorIssuer")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	scopes := fs.String("scope", rpc.ScopeFaucet+","+rpc.ScopeEvents, "comma separated scopes")
	if !c.parse(fs, args) {
		return 1
	}
	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	token, err := rpc.IssueOperatorToken(*secret, *issuer, *ttl, list...)
	if err != nil {
		return c.fail("%v", err)
	}
	fmt.Fprintln(c.stdout, token)
	return 0
}
