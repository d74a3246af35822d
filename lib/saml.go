package login

import (
	"bytes"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"
)

const (
	soapNS  = "http://schemas.xmlsoap.org/soap/envelope/"
	samlNS  = "urn:oasis:names:tc:SAML:2.0:assertion"
	samlpNS = "urn:oasis:names:tc:SAML:2.0:protocol"

	samlSuccess = "urn:oasis:names:tc:SAML:2.0:status:Success"
	paosBinding = "urn:oasis:names:tc:SAML:2.0:bindings:PAOS"
	awsACSURL   = "https://signin.aws.amazon.com/saml"
	awsIssuer   = "urn:amazon:webservices"

	soapBody      = "*[namespace-uri()='" + soapNS + "' and local-name()='Body']"
	samlpResponse = "*[namespace-uri()='" + samlpNS + "' and local-name()='Response']"
	samlpStatus   = "*[namespace-uri()='" + samlpNS + "' and local-name()='Status']"
	samlpCode     = "*[namespace-uri()='" + samlpNS + "' and local-name()='StatusCode']"

	samlAssertion = "*[namespace-uri()='" + samlNS + "' and local-name()='Assertion']"
	samlAttrStmt  = "*[namespace-uri()='" + samlNS + "' and local-name()='AttributeStatement']"
	samlAttr      = "*[namespace-uri()='" + samlNS + "' and local-name()='Attribute']"
	samlAttrValue = "*[namespace-uri()='" + samlNS + "' and local-name()='AttributeValue']"

	roleAttrName = "https://aws.amazon.com/SAML/Attributes/Role"
)

var (
	statusPath   *xpath.Expr
	responsePath *xpath.Expr
	rolePath     *xpath.Expr

	roleArnRegex      = regexp.MustCompile(`.*(arn:aws:iam::([0-9]+):role/([^,:]+)).*`)
	principalArnRegex = regexp.MustCompile(`.*(arn:aws:iam::([0-9]+):saml-provider/([^,:]+)).*`)

	// both are swapped out by wire-format tests
	utcNow = func() time.Time {
		return time.Now().UTC()
	}
	newRequestID = func() string {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			log.Panicf("Could not generate request id: %v", err)
		}
		return fmt.Sprintf("_%X", b)
	}
)

func init() {
	var err error

	statusPath, err = xpath.Compile("//" + soapBody + "/" + samlpResponse + "/" + samlpStatus +
		"/" + samlpCode + "[@Value='" + samlSuccess + "']")
	if err != nil {
		log.Panic("Could not compile status path!")
	}
	responsePath, err = xpath.Compile("//" + soapBody + "/" + samlpResponse)
	if err != nil {
		log.Panic("Could not compile response path!")
	}
	rolePath, err = xpath.Compile("//" + samlAssertion + "/" + samlAttrStmt + "/" + samlAttr +
		"[@Name='" + roleAttrName + "']/" + samlAttrValue)
	if err != nil {
		log.Panic("Could not compile role path!")
	}
}

// Role is one assumable identity extracted from the SAML response: the
// saml-provider trust ARN and the role ARN it permits.
type Role struct {
	PrincipalArn string
	RoleArn      string
}

// Authenticate posts a fresh AuthnRequest to the ECP endpoint using HTTP
// basic auth plus any multi-factor hint headers. On success the IdP session
// cookies are persisted to jarPath for later refreshes.
func Authenticate(endpoint, jarPath, username, password string, headers map[string]string, verifyTLS bool) (string, []Role, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, err
	}

	jar, err := newCookieJar(jarPath)
	if err != nil {
		return "", nil, err
	}

	soap, err := samlLogin(u, jar, username, password, headers, verifyTLS)
	if err != nil {
		return "", nil, err
	}

	log.Infof("Successfully authenticated with username/password to endpoint: %s", endpoint)

	if err := jar.save(u); err != nil {
		return "", nil, err
	}
	log.Infof("Saved cookies to jar: %s", jarPath)

	return parseResponse(soap)
}

// Refresh reauthenticates using only the stored IdP session cookies. A
// missing jar file is reported distinctly so callers can fall back to
// interactive authentication.
func Refresh(endpoint, jarPath string, verifyTLS bool) (string, []Role, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, err
	}

	jar, err := newCookieJar(jarPath)
	if err != nil {
		return "", nil, err
	}

	if err := jar.load(u); err != nil {
		if os.IsNotExist(err) {
			return "", nil, errMissingCookieJar(jarPath, err)
		}
		return "", nil, err
	}
	log.Infof("Loaded cookie jar: %s", jarPath)

	soap, err := samlLogin(u, jar, "", "", nil, verifyTLS)
	if err != nil {
		return "", nil, err
	}

	log.Infof("Successfully authenticated with cookies to endpoint: %s", endpoint)

	if err := jar.save(u); err != nil {
		return "", nil, err
	}

	return parseResponse(soap)
}

// samlLogin posts an AuthnRequest and classifies the outcome. A body that is
// not XML means the endpoint is misconfigured (InvalidSOAP); well-formed XML
// without a SAML success status means the IdP rejected us (AuthnFailed).
// The two must never be conflated.
func samlLogin(u *url.URL, jar *cookieJar, username, password string, headers map[string]string, verifyTLS bool) ([]byte, error) {
	envelope := authnRequest()

	req, err := http.NewRequest("POST", u.String(), bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "text/xml")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if len(username) > 0 && len(password) > 0 {
		req.SetBasicAuth(username, password)
	}

	client := &http.Client{
		Jar: jar,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !verifyTLS},
		},
	}

	log.Debugf("POST %s", u)

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	log.Debugf("POST returned %d: %d bytes", response.StatusCode, len(body))

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, newSamlError("ECP endpoint %s returned status %s", u, response.Status)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errInvalidSOAP(u.String(), err)
	}

	// the xml parser tolerates bare text, so a missing Response element is
	// the real "this is not SOAP" signal
	if xmlquery.QuerySelector(doc, responsePath) == nil {
		return nil, errInvalidSOAP(u.String(), nil)
	}

	if xmlquery.QuerySelector(doc, statusPath) == nil {
		return nil, errAuthnFailed()
	}

	return body, nil
}

// parseResponse extracts the base64 encoded assertion and the advertised
// roles from a successful SOAP response.
func parseResponse(soap []byte) (string, []Role, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(soap))
	if err != nil {
		return "", nil, errInvalidSOAP("response", err)
	}

	node := xmlquery.QuerySelector(doc, responsePath)
	if node == nil {
		return "", nil, newSamlError("no SAML Response element found")
	}
	assertion := base64.StdEncoding.EncodeToString([]byte(node.OutputXML(true)))

	var roles []Role
	for _, value := range xmlquery.QuerySelectorAll(doc, rolePath) {
		role, err := parseRoleValue(value.InnerText())
		if err != nil {
			return "", nil, err
		}
		roles = append(roles, *role)
	}

	return assertion, roles, nil
}

// parseRoleValue splits one Role attribute value into its two ARNs. Each
// value must yield both a saml-provider ARN and a role ARN; anything else
// aborts the whole exchange.
func parseRoleValue(value string) (*Role, error) {
	role := roleArnRegex.FindStringSubmatch(value)
	principal := principalArnRegex.FindStringSubmatch(value)

	if role == nil || principal == nil {
		return nil, errRoleParseFail(value)
	}

	return &Role{PrincipalArn: principal[1], RoleArn: role[1]}, nil
}

// authnRequest builds the ECP AuthnRequest SOAP envelope for the Amazon SP.
func authnRequest() []byte {
	doc := etree.NewDocument()

	envelope := doc.CreateElement("S:Envelope")
	envelope.CreateAttr("xmlns:S", soapNS)
	envelope.CreateAttr("xmlns:saml2", samlNS)
	envelope.CreateAttr("xmlns:saml2p", samlpNS)

	body := envelope.CreateElement("S:Body")

	request := body.CreateElement("saml2p:AuthnRequest")
	request.CreateAttr("AssertionConsumerServiceURL", awsACSURL)
	request.CreateAttr("ID", newRequestID())
	request.CreateAttr("IssueInstant", utcNow().Format("2006-01-02T15:04:05Z"))
	request.CreateAttr("ProtocolBinding", paosBinding)
	request.CreateAttr("Version", "2.0")

	issuer := request.CreateElement("saml2:Issuer")
	issuer.SetText(awsIssuer)

	out, err := doc.WriteToBytes()
	if err != nil {
		log.Panicf("Could not serialize AuthnRequest: %v", err)
	}
	return out
}
