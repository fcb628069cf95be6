package aggregate

// DefaultGroupName is used for nodes no rule matches.
const DefaultGroupName = "default"

// Node pool labels set by common provisioners.
const (
	LabelEKSNodeGroup      = "eks.amazonaws.com/nodegroup"
	LabelKopsInstanceGroup = "kops.k8s.io/instancegroup"
	LabelGKENodePool       = "cloud.google.com/gke-nodepool"
	LabelAKSAgentPool      = "agentpool"
)

// GroupRule maps a node's labels to a group name. Extract returns false when
// the rule does not apply.
type GroupRule struct {
	Name    string
	Extract func(labels map[string]string) (string, bool)
}

// LabelRule matches nodes carrying a non-empty value for label.
func LabelRule(name, label string) GroupRule {
	return GroupRule{
		Name: name,
		Extract: func(labels map[string]string) (string, bool) {
			v, ok := labels[label]
			return v, ok && v != ""
		},
	}
}

// DefaultGroupRules returns the provisioner rules in priority order.
// A node carrying several pool labels joins the group of the first match.
func DefaultGroupRules() []GroupRule {
	return []GroupRule{
		LabelRule("eks", LabelEKSNodeGroup),
		LabelRule("kops", LabelKopsInstanceGroup),
		LabelRule("gke", LabelGKENodePool),
		LabelRule("aks", LabelAKSAgentPool),
	}
}

// GroupName evaluates rules in order against labels.
func GroupName(rules []GroupRule, labels map[string]string) string {
	for _, rule := range rules {
		if name, ok := rule.Extract(labels); ok {
			return name
		}
	}
	return DefaultGroupName
}
