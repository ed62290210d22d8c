package kanidm

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/secrets"
)

//go:embed replication-init.sh
var replicationInitScript string

const (
	httpsPort     = 8443
	ldapPort      = 3636
	replPort      = 8444
	dataVolume    = "data"
	dataMountPath = "/data"
	tlsVolume     = "tls"
	tlsMountPath  = "/data/tls"
)

// statefulSetName names the StatefulSet backing one replica group.
func statefulSetName(kanidmName, groupName string) string {
	return kanidmName + "-" + groupName
}

// headlessServiceName names the headless Service fronting a replica
// group's StatefulSet, used for pod DNS and replication peer addressing.
func headlessServiceName(kanidmName, groupName string) string {
	return statefulSetName(kanidmName, groupName) + "-headless"
}

// ServiceName names the ClusterIP Service load-balancing across every
// replica group's pods.
func ServiceName(kanidmName string) string {
	return kanidmName
}

func labelsFor(kanidmName, groupName string) map[string]string {
	l := map[string]string{
		"app.kubernetes.io/name":     "kanidm",
		"app.kubernetes.io/instance": kanidmName,
		"kaniop.rs/kanidm":           kanidmName,
	}
	if groupName != "" {
		l["kaniop.rs/replica-group"] = groupName
	}
	return l
}

// buildHeadlessService returns the desired headless Service for one
// replica group.
func buildHeadlessService(kanidm *v1alpha1.Kanidm, group v1alpha1.KanidmReplicaGroupSpec) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      headlessServiceName(kanidm.Name, group.Name),
			Namespace: kanidm.Namespace,
			Labels:    labelsFor(kanidm.Name, group.Name),
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  labelsFor(kanidm.Name, group.Name),
			Ports:     servicePorts(kanidm),
		},
	}
}

// buildService returns the desired cluster-facing Service load-balancing
// across every replica group.
func buildService(kanidm *v1alpha1.Kanidm) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(kanidm.Name),
			Namespace: kanidm.Namespace,
			Labels:    labelsFor(kanidm.Name, ""),
		},
		Spec: corev1.ServiceSpec{
			Selector: labelsFor(kanidm.Name, ""),
			Ports:    servicePorts(kanidm),
		},
	}
}

func servicePorts(kanidm *v1alpha1.Kanidm) []corev1.ServicePort {
	ports := []corev1.ServicePort{
		{Name: "https", Port: httpsPort, TargetPort: intstr.FromInt(httpsPort), Protocol: corev1.ProtocolTCP},
	}
	if kanidm.Spec.LdapPortName != "" {
		ports = append(ports, corev1.ServicePort{Name: kanidm.Spec.LdapPortName, Port: ldapPort, TargetPort: intstr.FromInt(ldapPort), Protocol: corev1.ProtocolTCP})
	}
	return ports
}

// buildIngress returns the desired Ingress exposing the instance, or nil
// if kanidm.Spec.Ingress is unset.
func buildIngress(kanidm *v1alpha1.Kanidm) *networkingv1.Ingress {
	if kanidm.Spec.Ingress == nil {
		return nil
	}
	pathType := networkingv1.PathTypePrefix
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        kanidm.Name,
			Namespace:   kanidm.Namespace,
			Labels:      labelsFor(kanidm.Name, ""),
			Annotations: kanidm.Spec.Ingress.Annotations,
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: kanidm.Spec.Ingress.IngressClassName,
			TLS: []networkingv1.IngressTLS{
				{Hosts: []string{kanidm.Spec.Domain}, SecretName: kanidm.Spec.TLSSecretName},
			},
			Rules: []networkingv1.IngressRule{
				{
					Host: kanidm.Spec.Domain,
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: ServiceName(kanidm.Name),
											Port: networkingv1.ServiceBackendPort{Number: httpsPort},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// buildStatefulSet returns the desired StatefulSet for one replica
// group, with its replication env vars derived from the whole spec's
// role matrix (see replicationEnv) and, when replication is enabled, a
// declarative init container that renders /data/server.toml.
func buildStatefulSet(kanidm *v1alpha1.Kanidm, group v1alpha1.KanidmReplicaGroupSpec) *appsv1.StatefulSet {
	storage := kanidm.Spec.Storage
	if group.StorageTemplate != nil {
		storage = *group.StorageTemplate
	}

	labels := labelsFor(kanidm.Name, group.Name)
	replicas := group.Replicas

	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      statefulSetName(kanidm.Name, group.Name),
			Namespace: kanidm.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: headlessServiceName(kanidm.Name, group.Name),
			Replicas:    &replicas,
			Selector:    &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					SecurityContext: kanidm.Spec.PodSecurityContext,
					Affinity:        group.Affinity,
					Tolerations:     group.Tolerations,
					DNSPolicy:       kanidm.Spec.DNSPolicy,
					HostNetwork:     kanidm.Spec.HostNetwork,
					Containers: []corev1.Container{
						{
							Name:      "kanidmd",
							Image:     kanidm.Spec.Image,
							Resources: group.Resources,
							Env:       replicationEnv(kanidm, group),
							Ports: []corev1.ContainerPort{
								{Name: "https", ContainerPort: httpsPort},
								{Name: "repl", ContainerPort: replPort},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: dataVolume, MountPath: dataMountPath},
								{Name: tlsVolume, MountPath: tlsMountPath, ReadOnly: true},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: tlsVolume,
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{SecretName: kanidm.Spec.TLSSecretName},
							},
						},
					},
				},
			},
		},
	}

	if replicationEnabled(kanidm) {
		sts.Spec.Template.Spec.InitContainers = []corev1.Container{
			{
				Name:    "replication-config",
				Image:   kanidm.Spec.Image,
				Command: []string{"/bin/sh", "-ce", replicationInitScript},
				Env:     replicationEnv(kanidm, group),
				VolumeMounts: []corev1.VolumeMount{
					{Name: dataVolume, MountPath: dataMountPath},
				},
			},
		}
	}

	if storage.EmptyDir != nil {
		sts.Spec.Template.Spec.Volumes = append(sts.Spec.Template.Spec.Volumes, corev1.Volume{
			Name:         dataVolume,
			VolumeSource: corev1.VolumeSource{EmptyDir: storage.EmptyDir},
		})
	} else if storage.Ephemeral != nil {
		sts.Spec.Template.Spec.Volumes = append(sts.Spec.Template.Spec.Volumes, corev1.Volume{
			Name:         dataVolume,
			VolumeSource: corev1.VolumeSource{Ephemeral: storage.Ephemeral},
		})
	} else if storage.VolumeClaimTemplate != nil {
		sts.Spec.VolumeClaimTemplates = []corev1.PersistentVolumeClaim{
			{
				ObjectMeta: metav1.ObjectMeta{Name: dataVolume},
				Spec:       *storage.VolumeClaimTemplate,
			},
		}
	}

	return sts
}

// replicationEnabled reports whether kanidm's spec requires any
// replication relationship at all: more than one replica in some group,
// more than one group, or any external replication peer. A single group
// with a single replica runs standalone with no init container.
func replicationEnabled(kanidm *v1alpha1.Kanidm) bool {
	if len(kanidm.Spec.ExternalReplicationNodes) > 0 {
		return true
	}
	if len(kanidm.Spec.ReplicaGroups) > 1 {
		return true
	}
	for _, g := range kanidm.Spec.ReplicaGroups {
		if g.Replicas > 1 {
			return true
		}
	}
	return false
}

// isWriteRole reports whether role occupies a write position in the
// replication-type matrix (writeReplica and writeReplicaNoUI are
// equivalent for replication purposes; only UI exposure differs).
func isWriteRole(role v1alpha1.ReplicationRole) bool {
	return role == v1alpha1.ReplicationRoleWriteReplica || role == v1alpha1.ReplicationRoleWriteReplicaNoUI
}

// replicationType implements the source-role/target-role replication-type
// matrix, viewed from source's side. The empty string means "no
// replication entry" (read-only talking to read-only).
func replicationType(source, target v1alpha1.ReplicationRole) string {
	sourceWrite, targetWrite := isWriteRole(source), isWriteRole(target)
	switch {
	case sourceWrite && targetWrite:
		return "mutual-pull"
	case sourceWrite && !targetWrite:
		return "allow-pull"
	case !sourceWrite && targetWrite:
		return "pull"
	default:
		return ""
	}
}

// podName returns the StatefulSet-ordinal pod name for replica index i
// of the StatefulSet named stsName.
func podName(stsName string, i int32) string {
	return fmt.Sprintf("%s-%d", stsName, i)
}

// upperSnake converts a Kubernetes object name (lowercase, hyphenated)
// into the SCREAMING_SNAKE_CASE form used as an env var name.
func upperSnake(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// replicationEnv composes the kanidmd (and replication-config init
// container) env vars for one replica group: a catamorphism over
// (replica_groups × replicas × role-matrix) ⊎ external_nodes. The
// StatefulSet's pod template is shared by every replica in the group, so
// this necessarily enumerates every peer pod across the whole cluster
// (including this group's own siblings) without knowing which specific
// pod it will run on; the init container script determines "self" at
// runtime via the POD_NAME downward-API value and skips it.
func replicationEnv(kanidm *v1alpha1.Kanidm, group v1alpha1.KanidmReplicaGroupSpec) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: "KANIDM_DOMAIN", Value: kanidm.Spec.Domain},
		{Name: "KANIDM_ORIGIN", Value: "https://" + kanidm.Spec.Domain},
		{Name: "KANIDM_LOG_LEVEL", Value: kanidm.Spec.LogLevel},
		{Name: "KANIDM_ROLE", Value: string(group.Role)},
	}

	if !replicationEnabled(kanidm) {
		return env
	}

	env = append(env,
		corev1.EnvVar{
			Name:      "POD_NAME",
			ValueFrom: &corev1.EnvVarSource{FieldRef: &corev1.ObjectFieldSelector{FieldPath: "metadata.name"}},
		},
		corev1.EnvVar{Name: "REPLICATION_PORT", Value: strconv.Itoa(replPort)},
		corev1.EnvVar{Name: "KANIDM_SERVICE_NAME", Value: ServiceName(kanidm.Name)},
	)

	var peerNames, externalNames []string
	primaryIdentifier := ""

	for _, peerGroup := range kanidm.Spec.ReplicaGroups {
		replType := replicationType(group.Role, peerGroup.Role)
		if replType == "" {
			continue
		}
		for i := int32(0); i < peerGroup.Replicas; i++ {
			envName := upperSnake(podName(statefulSetName(kanidm.Name, peerGroup.Name), i))
			env = append(env,
				corev1.EnvVar{
					Name: envName,
					ValueFrom: &corev1.EnvVarSource{
						SecretKeyRef: &corev1.SecretKeySelector{
							LocalObjectReference: corev1.LocalObjectReference{Name: secrets.ReplicationCertName(podName(statefulSetName(kanidm.Name, peerGroup.Name), i))},
							Key:                  secrets.ReplicationCertKey,
							Optional:             boolPtr(true),
						},
					},
				},
				corev1.EnvVar{Name: envName + "_TYPE", Value: replType},
			)
			peerNames = append(peerNames, envName)
		}
		if isPrimaryNode(peerGroup) {
			primaryIdentifier = upperSnake(podName(statefulSetName(kanidm.Name, peerGroup.Name), 0))
		}
	}

	for _, node := range kanidm.Spec.ExternalReplicationNodes {
		envName := upperSnake(node.Name)
		env = append(env,
			corev1.EnvVar{Name: envName + "_HOSTNAME", Value: fmt.Sprintf("%s:%d", node.Hostname, node.Port)},
			corev1.EnvVar{
				Name: envName,
				ValueFrom: &corev1.EnvVarSource{
					SecretKeyRef: &corev1.SecretKeySelector{
						LocalObjectReference: node.CertificateSecretRef,
						Key:                  secrets.ReplicationCertKey,
						Optional:             boolPtr(true),
					},
				},
			},
			corev1.EnvVar{Name: envName + "_TYPE", Value: node.Type},
			corev1.EnvVar{Name: envName + "_AUTOMATIC_REFRESH", Value: strconv.FormatBool(node.AutomaticRefresh)},
		)
		externalNames = append(externalNames, envName)
		if node.AutomaticRefresh {
			primaryIdentifier = envName
		}
	}

	if primaryIdentifier != "" {
		env = append(env, corev1.EnvVar{Name: "KANIDM_PRIMARY_NODE", Value: primaryIdentifier})
	}

	env = append(env,
		corev1.EnvVar{Name: "KANIDM_REPLICATION_PEER_NAMES", Value: strings.Join(peerNames, ",")},
		corev1.EnvVar{Name: "KANIDM_REPLICATION_EXTERNAL_NAMES", Value: strings.Join(externalNames, ",")},
	)

	return env
}

func boolPtr(b bool) *bool { return &b }

// isPrimaryNode reports whether group is the spec-wide automatic_refresh
// source. At most one group or external node may set this across the
// whole spec; admission.ValidateKanidmSpec enforces the at-most-one
// invariant and that it is only legal for write roles.
func isPrimaryNode(group v1alpha1.KanidmReplicaGroupSpec) bool {
	return group.PrimaryNode != nil && *group.PrimaryNode
}

// buildAdminSecret returns the desired Secret holding the generated admin
// and idm_admin passwords, used on first reconcile only: once the Secret
// exists, its data is never regenerated in place (regeneration requires
// explicit rotation handling, not a blind overwrite).
func buildAdminSecret(kanidm *v1alpha1.Kanidm, adminPassword, idmAdminPassword string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secrets.AdminPasswordName(kanidm.Name),
			Namespace: kanidm.Namespace,
			Labels:    labelsFor(kanidm.Name, ""),
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			secrets.AdminPasswordKey:    adminPassword,
			secrets.IDMAdminPasswordKey: idmAdminPassword,
		},
	}
}
