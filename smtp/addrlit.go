package smtp

import (
	"net"
)

// AddressLiteral formats ip as an SMTP address literal: "[1.2.3.4]" for
// IPv4, "[IPv6:...]" for IPv6. ../rfc/5321:2309
func AddressLiteral(ip net.IP) string {
	tag := "IPv6:"
	if ip.To4() != nil {
		tag = ""
	}
	return "[" + tag + ip.String() + "]"
}
